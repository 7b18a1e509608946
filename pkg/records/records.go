// Package records defines the fixed-width record layouts the external
// relational drivers move through the storage stack, plus the helpers to
// bulk-load binary record files into the address space.
//
// The layouts are pinned: Employee and Company occupy exactly 128 bytes,
// JoinEmployeeCompany exactly 256, with int32 fields little-endian and
// strings in NUL-padded slots. Index payload widths depend on these
// sizes, so they never change silently.
package records

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/iamNilotpal/ember/pkg/errors"
	"github.com/iamNilotpal/ember/pkg/storage"
)

const (
	// EmployeeSize is the serialized footprint of one Employee record.
	EmployeeSize = 128

	// CompanySize is the serialized footprint of one Company record.
	CompanySize = 128

	// JoinSize is the serialized footprint of one JoinEmployeeCompany
	// record.
	JoinSize = 256

	employeeNameLen = 58
	companyNameLen  = 62
	joinNameLen     = 64
)

// Employee is one 128-byte employee record, ordered by CompanyID.
type Employee struct {
	ID        int32
	CompanyID int32
	Salary    int32
	FName     string // At most 58 bytes; longer names are truncated.
	LName     string // At most 58 bytes; longer names are truncated.
}

// Company is one 128-byte company record, ordered by ID.
type Company struct {
	ID     int32
	Name   string // At most 62 bytes; longer names are truncated.
	Slogan string // At most 62 bytes; longer names are truncated.
}

// JoinEmployeeCompany is one 256-byte joined record carrying both keys.
type JoinEmployeeCompany struct {
	EmployeeID int32
	CompanyID  int32
	Salary     int32
	FName      string
	LName      string
	Name       string
	Slogan     string
}

// NewJoin combines an employee with its company into a joined record.
func NewJoin(e Employee, c Company) JoinEmployeeCompany {
	return JoinEmployeeCompany{
		EmployeeID: e.ID,
		CompanyID:  c.ID,
		Salary:     e.Salary,
		FName:      e.FName,
		LName:      e.LName,
		Name:       c.Name,
		Slogan:     c.Slogan,
	}
}

func putString(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

func getString(src []byte) string {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		src = src[:i]
	}
	return string(src)
}

// Encode serializes the employee into its 128-byte layout.
func (e Employee) Encode() []byte {
	data := make([]byte, EmployeeSize)
	binary.LittleEndian.PutUint32(data[0:], uint32(e.ID))
	binary.LittleEndian.PutUint32(data[4:], uint32(e.CompanyID))
	binary.LittleEndian.PutUint32(data[8:], uint32(e.Salary))
	putString(data[12:12+employeeNameLen], e.FName)
	putString(data[70:70+employeeNameLen], e.LName)
	return data
}

// DecodeEmployee deserializes a 128-byte employee record.
func DecodeEmployee(data []byte) Employee {
	return Employee{
		ID:        int32(binary.LittleEndian.Uint32(data[0:])),
		CompanyID: int32(binary.LittleEndian.Uint32(data[4:])),
		Salary:    int32(binary.LittleEndian.Uint32(data[8:])),
		FName:     getString(data[12 : 12+employeeNameLen]),
		LName:     getString(data[70 : 70+employeeNameLen]),
	}
}

// Encode serializes the company into its 128-byte layout.
func (c Company) Encode() []byte {
	data := make([]byte, CompanySize)
	binary.LittleEndian.PutUint32(data[0:], uint32(c.ID))
	putString(data[4:4+companyNameLen], c.Name)
	putString(data[66:66+companyNameLen], c.Slogan)
	return data
}

// DecodeCompany deserializes a 128-byte company record.
func DecodeCompany(data []byte) Company {
	return Company{
		ID:     int32(binary.LittleEndian.Uint32(data[0:])),
		Name:   getString(data[4 : 4+companyNameLen]),
		Slogan: getString(data[66 : 66+companyNameLen]),
	}
}

// Encode serializes the joined record into its 256-byte layout.
func (j JoinEmployeeCompany) Encode() []byte {
	data := make([]byte, JoinSize)
	binary.LittleEndian.PutUint32(data[0:], uint32(j.EmployeeID))
	binary.LittleEndian.PutUint32(data[4:], uint32(j.CompanyID))
	binary.LittleEndian.PutUint32(data[8:], uint32(j.Salary))
	putString(data[12:12+employeeNameLen], j.FName)
	putString(data[70:70+employeeNameLen], j.LName)
	putString(data[128:128+joinNameLen], j.Name)
	putString(data[192:192+joinNameLen], j.Slogan)
	return data
}

// DecodeJoin deserializes a 256-byte joined record.
func DecodeJoin(data []byte) JoinEmployeeCompany {
	return JoinEmployeeCompany{
		EmployeeID: int32(binary.LittleEndian.Uint32(data[0:])),
		CompanyID:  int32(binary.LittleEndian.Uint32(data[4:])),
		Salary:     int32(binary.LittleEndian.Uint32(data[8:])),
		FName:      getString(data[12 : 12+employeeNameLen]),
		LName:      getString(data[70 : 70+employeeNameLen]),
		Name:       getString(data[128 : 128+joinNameLen]),
		Slogan:     getString(data[192 : 192+joinNameLen]),
	}
}

// LoadFile copies a binary record file into the address space in
// recordSize chunks starting at startAddress. It returns the half-open
// address range [start, end) the records occupy. A trailing partial
// record is ignored, matching the chunked reader the drivers expect.
func LoadFile(store storage.ByteStore, fileName string, startAddress storage.Address, recordSize uint64) (storage.Address, storage.Address, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return 0, 0, errors.ClassifyFileOpenError(err, fileName, fileName)
	}
	defer file.Close()

	end := startAddress
	chunk := make([]byte, recordSize)
	for {
		if _, err := io.ReadFull(file, chunk); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return 0, 0, errors.NewStorageError(err, errors.ErrorCodeIO, "Failed to read record file").
				WithPath(fileName)
		}
		if err := store.WriteAddress(end, chunk); err != nil {
			return 0, 0, err
		}
		end += storage.Address(recordSize)
	}
	return startAddress, end, nil
}
