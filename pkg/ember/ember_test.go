package ember_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iamNilotpal/ember/pkg/codec"
	"github.com/iamNilotpal/ember/pkg/ember"
	"github.com/iamNilotpal/ember/pkg/index/bptree"
	"github.com/iamNilotpal/ember/pkg/logger"
	"github.com/iamNilotpal/ember/pkg/options"
	"github.com/iamNilotpal/ember/pkg/records"
	"github.com/iamNilotpal/ember/pkg/storage"
)

func newInstance(t *testing.T, opts ...options.OptionFunc) *ember.Instance {
	t.Helper()

	opts = append([]options.OptionFunc{
		options.WithDiskFile(filepath.Join(t.TempDir(), "disk.dat")),
	}, opts...)

	inst, err := ember.NewInstance(context.Background(), "ember-test", opts...)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	t.Cleanup(func() { inst.Close(context.Background()) })
	return inst
}

func TestInstanceByteSurface(t *testing.T) {
	inst := newInstance(t)

	want := []byte("straddling the first page boundary")
	addr := storage.Address(options.DefaultBlockSize - 10)
	if err := inst.WriteAddress(addr, want); err != nil {
		t.Fatalf("WriteAddress: %v", err)
	}
	got, err := inst.ReadAddress(addr, uint64(len(want)))
	if err != nil {
		t.Fatalf("ReadAddress: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("round trip = %q, want %q", got, want)
	}

	if err := inst.ClearCache(); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}
	got, err = inst.ReadAddress(addr, uint64(len(want)))
	if err != nil || string(got) != string(want) {
		t.Fatalf("after ClearCache: %q, %v", got, err)
	}
}

func TestReserveDisjoint(t *testing.T) {
	inst := newInstance(t)

	a, err := inst.Reserve(1000)
	if err != nil {
		t.Fatal(err)
	}
	b, err := inst.Reserve(500)
	if err != nil {
		t.Fatal(err)
	}
	if b < a+1000 {
		t.Fatalf("reservations overlap: [%d, +1000) then %d", a, b)
	}

	inst.ReserveThrough(b + 5000)
	c, err := inst.Reserve(1)
	if err != nil {
		t.Fatal(err)
	}
	if c < b+5000 {
		t.Fatalf("ReserveThrough ignored: next reservation at %d", c)
	}

	if _, err := inst.Reserve(options.DefaultDiskSize); err == nil {
		t.Fatal("reserving past capacity succeeded")
	}
}

func TestStatsReport(t *testing.T) {
	inst := newInstance(t)

	if err := inst.WriteAddress(0, make([]byte, 100)); err != nil {
		t.Fatal(err)
	}
	stats := inst.Stats()
	if stats.BufferIO == 0 || stats.DiskIO == 0 {
		t.Fatalf("stats did not move: %+v", stats)
	}
	if stats.FrameCount != uint32(options.DefaultBufferSize/options.DefaultBlockSize) {
		t.Fatalf("frame count = %d", stats.FrameCount)
	}

	report := stats.String()
	for _, want := range []string{"Buffer IO operations:", "Disk IO operations:", "Disk IO cost:", "ReplacementStrategy: LRU", "DiskAccessStrategy: RANDOM"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}
}

// Scenario S6 at the facade: the same workload on a sequential-cost disk
// never costs less than on a random-cost one, with identical operation
// counts.
func TestAccessTypeCostOrdering(t *testing.T) {
	run := func(access storage.AccessType) storage.Stats {
		inst := newInstance(t, options.WithAccessType(access))
		for i := 0; i < 40; i++ {
			addr := storage.Address((i * 7919) % (64 * 1024))
			if err := inst.WriteAddress(addr, []byte{byte(i)}); err != nil {
				t.Fatal(err)
			}
		}
		return inst.Stats()
	}

	random := run(storage.Random)
	sequential := run(storage.Sequential)

	if random.DiskIO != sequential.DiskIO {
		t.Fatalf("operation counts diverged: %d vs %d", random.DiskIO, sequential.DiskIO)
	}
	if sequential.DiskCost < random.DiskCost {
		t.Fatalf("sequential cost %d < random cost %d", sequential.DiskCost, random.DiskCost)
	}
}

// Scenario S5: 5,000 employees and 1,000 companies loaded into the
// address space, a B+ tree over company_id*10^5+id mapping to record
// addresses, a company tree over id, and an index join producing 5,000
// 256-byte records. Every joined record must decode consistently.
func TestIndexJoinScenario(t *testing.T) {
	const (
		numEmployees = 5000
		numCompanies = 1000
	)

	inst := newInstance(t)

	empStart, err := inst.Reserve(numEmployees * records.EmployeeSize)
	if err != nil {
		t.Fatal(err)
	}
	compStart, err := inst.Reserve(numCompanies * records.CompanySize)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < numEmployees; i++ {
		e := records.Employee{
			ID:        int32(i),
			CompanyID: int32(i % numCompanies),
			Salary:    int32(30000 + i),
			FName:     fmt.Sprintf("fn%d", i),
			LName:     fmt.Sprintf("ln%d", i),
		}
		addr := empStart + storage.Address(i*records.EmployeeSize)
		if err := inst.WriteAddress(addr, e.Encode()); err != nil {
			t.Fatalf("write employee %d: %v", i, err)
		}
	}
	for i := 0; i < numCompanies; i++ {
		c := records.Company{
			ID:     int32(i),
			Name:   fmt.Sprintf("company%d", i),
			Slogan: fmt.Sprintf("slogan%d", i),
		}
		addr := compStart + storage.Address(i*records.CompanySize)
		if err := inst.WriteAddress(addr, c.Encode()); err != nil {
			t.Fatalf("write company %d: %v", i, err)
		}
	}

	// Employee tree keyed by company then id, mapping to record addresses.
	empTreeBase, err := inst.Reserve(0)
	if err != nil {
		t.Fatal(err)
	}
	empTree, err := bptree.New(&bptree.Config[int64, uint64]{
		Store:       inst.Buffer(),
		Order:       64,
		BaseAddress: empTreeBase,
		KeyCodec:    codec.Int64{},
		ValueCodec:  codec.Uint64{},
		Logger:      logger.NewNop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < numEmployees; i++ {
		addr := empStart + storage.Address(i*records.EmployeeSize)
		data, err := inst.ReadAddress(addr, records.EmployeeSize)
		if err != nil {
			t.Fatal(err)
		}
		e := records.DecodeEmployee(data)
		key := int64(e.CompanyID)*100000 + int64(e.ID)
		if err := empTree.Insert(key, uint64(addr)); err != nil {
			t.Fatalf("employee tree insert %d: %v", i, err)
		}
	}
	_, empTreeEnd := empTree.AddressRange()
	inst.ReserveThrough(empTreeEnd)

	// Company tree keyed by id.
	compTreeBase, err := inst.Reserve(0)
	if err != nil {
		t.Fatal(err)
	}
	compTree, err := bptree.New(&bptree.Config[int64, uint64]{
		Store:       inst.Buffer(),
		Order:       64,
		BaseAddress: compTreeBase,
		KeyCodec:    codec.Int64{},
		ValueCodec:  codec.Uint64{},
		Logger:      logger.NewNop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < numCompanies; i++ {
		addr := compStart + storage.Address(i*records.CompanySize)
		if err := compTree.Insert(int64(i), uint64(addr)); err != nil {
			t.Fatalf("company tree insert %d: %v", i, err)
		}
	}
	_, compTreeEnd := compTree.AddressRange()
	inst.ReserveThrough(compTreeEnd)

	joinStart, err := inst.Reserve(numEmployees * records.JoinSize)
	if err != nil {
		t.Fatal(err)
	}

	// Index join: walk employees in (company, id) order, probe the company
	// tree, emit joined records.
	it, err := empTree.Begin()
	if err != nil {
		t.Fatal(err)
	}
	joined := 0
	for it.Valid() {
		empData, err := inst.ReadAddress(storage.Address(it.Value()), records.EmployeeSize)
		if err != nil {
			t.Fatal(err)
		}
		e := records.DecodeEmployee(empData)

		compAddr, ok, err := compTree.Search(int64(e.CompanyID))
		if err != nil || !ok {
			t.Fatalf("company %d not found for employee %d: %v", e.CompanyID, e.ID, err)
		}
		compData, err := inst.ReadAddress(storage.Address(compAddr), records.CompanySize)
		if err != nil {
			t.Fatal(err)
		}
		c := records.DecodeCompany(compData)

		join := records.NewJoin(e, c)
		addr := joinStart + storage.Address(joined*records.JoinSize)
		if err := inst.WriteAddress(addr, join.Encode()); err != nil {
			t.Fatal(err)
		}
		joined++

		if err := it.Next(); err != nil {
			t.Fatal(err)
		}
	}
	if joined != numEmployees {
		t.Fatalf("joined %d records, want %d", joined, numEmployees)
	}

	// Read back every joined record and verify cross-field consistency.
	for i := 0; i < numEmployees; i++ {
		data, err := inst.ReadAddress(joinStart+storage.Address(i*records.JoinSize), records.JoinSize)
		if err != nil {
			t.Fatal(err)
		}
		j := records.DecodeJoin(data)
		if j.Salary != 30000+j.EmployeeID {
			t.Fatalf("record %d: salary %d does not match employee %d", i, j.Salary, j.EmployeeID)
		}
		if want := j.EmployeeID % numCompanies; j.CompanyID != want {
			t.Fatalf("record %d: company %d, want %d", i, j.CompanyID, want)
		}
		if j.FName != fmt.Sprintf("fn%d", j.EmployeeID) {
			t.Fatalf("record %d: fname %q", i, j.FName)
		}
		if j.Name != fmt.Sprintf("company%d", j.CompanyID) {
			t.Fatalf("record %d: company name %q", i, j.Name)
		}
	}

	stats := inst.Stats()
	if stats.DiskIO == 0 || stats.BufferIO <= stats.DiskIO {
		t.Fatalf("implausible statistics for a join workload: %+v", stats)
	}
}
