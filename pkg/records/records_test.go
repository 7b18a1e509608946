package records

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/iamNilotpal/ember/internal/buffer"
	"github.com/iamNilotpal/ember/internal/disk"
	"github.com/iamNilotpal/ember/pkg/logger"
	"github.com/iamNilotpal/ember/pkg/storage"
)

func newTestStore(t *testing.T) storage.ByteStore {
	t.Helper()

	d, err := disk.New(&disk.Config{
		Access:     storage.Random,
		BlockSize:  512,
		BlockCount: 128,
		Path:       filepath.Join(t.TempDir(), "disk.dat"),
		Logger:     logger.NewNop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })

	m, err := buffer.New(&buffer.Config{
		Disk:       d,
		Strategy:   storage.LRU,
		BufferSize: 4 * 512,
		Logger:     logger.NewNop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestEmployeeRoundTrip(t *testing.T) {
	want := Employee{ID: 42, CompanyID: 7, Salary: 95000, FName: "Ada", LName: "Lovelace"}

	data := want.Encode()
	if len(data) != EmployeeSize {
		t.Fatalf("encoded employee is %d bytes, want %d", len(data), EmployeeSize)
	}
	if diff := cmp.Diff(want, DecodeEmployee(data)); diff != "" {
		t.Fatalf("employee round trip (-want +got):\n%s", diff)
	}
}

func TestCompanyRoundTrip(t *testing.T) {
	want := Company{ID: 7, Name: "Initech", Slogan: "Is this good for the company?"}

	data := want.Encode()
	if len(data) != CompanySize {
		t.Fatalf("encoded company is %d bytes, want %d", len(data), CompanySize)
	}
	if diff := cmp.Diff(want, DecodeCompany(data)); diff != "" {
		t.Fatalf("company round trip (-want +got):\n%s", diff)
	}
}

func TestJoinRoundTrip(t *testing.T) {
	e := Employee{ID: 1, CompanyID: 2, Salary: 3, FName: "Grace", LName: "Hopper"}
	c := Company{ID: 2, Name: "Navy", Slogan: "Amazing"}

	want := NewJoin(e, c)
	if want.EmployeeID != 1 || want.CompanyID != 2 || want.Salary != 3 || want.Name != "Navy" {
		t.Fatalf("NewJoin produced %+v", want)
	}

	data := want.Encode()
	if len(data) != JoinSize {
		t.Fatalf("encoded join is %d bytes, want %d", len(data), JoinSize)
	}
	if diff := cmp.Diff(want, DecodeJoin(data)); diff != "" {
		t.Fatalf("join round trip (-want +got):\n%s", diff)
	}
}

func TestStringFieldsTruncate(t *testing.T) {
	long := strings.Repeat("x", 100)
	e := DecodeEmployee(Employee{ID: 1, FName: long, LName: long}.Encode())
	if len(e.FName) != 58 || len(e.LName) != 58 {
		t.Fatalf("employee names = %d/%d bytes, want 58", len(e.FName), len(e.LName))
	}
	c := DecodeCompany(Company{ID: 1, Name: long, Slogan: long}.Encode())
	if len(c.Name) != 62 || len(c.Slogan) != 62 {
		t.Fatalf("company fields = %d/%d bytes, want 62", len(c.Name), len(c.Slogan))
	}
}

func TestLoadFile(t *testing.T) {
	store := newTestStore(t)

	// Three records plus a truncated tail that must be ignored.
	var blob []byte
	want := []Employee{
		{ID: 1, CompanyID: 10, Salary: 100, FName: "a", LName: "A"},
		{ID: 2, CompanyID: 20, Salary: 200, FName: "b", LName: "B"},
		{ID: 3, CompanyID: 30, Salary: 300, FName: "c", LName: "C"},
	}
	for _, e := range want {
		blob = append(blob, e.Encode()...)
	}
	blob = append(blob, 0xFF, 0xFF, 0xFF)

	path := filepath.Join(t.TempDir(), "employee.bin")
	if err := os.WriteFile(path, blob, 0644); err != nil {
		t.Fatal(err)
	}

	start, end, err := LoadFile(store, path, 256, EmployeeSize)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if start != 256 || end != 256+3*EmployeeSize {
		t.Fatalf("LoadFile range = [%d, %d), want [256, %d)", start, end, 256+3*EmployeeSize)
	}

	for i, w := range want {
		data, err := store.ReadAddress(start+storage.Address(i*EmployeeSize), EmployeeSize)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(w, DecodeEmployee(data)); diff != "" {
			t.Fatalf("record %d (-want +got):\n%s", i, diff)
		}
	}
}

func TestLoadFileMissing(t *testing.T) {
	store := newTestStore(t)
	if _, _, err := LoadFile(store, filepath.Join(t.TempDir(), "absent.bin"), 0, EmployeeSize); err == nil {
		t.Fatal("LoadFile of a missing file succeeded")
	}
}
