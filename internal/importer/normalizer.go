package importer

import (
	appErrors "github.com/unclebandit/outbound-campaigns/internal/errors"
	"github.com/unclebandit/outbound-campaigns/internal/model"
)

// Column layout of a contacts sheet. Row 0 is always treated as a header
// and its contents are not checked.
const (
	PhoneNumberColumn = 0
	FirstNameColumn   = 1
)

// Batch is the result of importing one file. It replaces any previous batch
// wholesale.
type Batch struct {
	FileName string          `json:"file_name"`
	Contacts []model.Contact `json:"contacts"`
	Rejected int             `json:"rejected_rows"`
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Contacts)
}

// NormalizeContacts maps data rows to contacts, keeping source order and
// duplicates. Rows without a phone number or first name are dropped and
// counted. Values are passed through untrimmed.
func NormalizeContacts(grid Grid) (contacts []model.Contact, rejected int) {
	contacts = []model.Contact{}
	if len(grid) <= 1 {
		return contacts, 0
	}
	for _, row := range grid[1:] {
		c := model.Contact{
			PhoneNumber: cell(row, PhoneNumberColumn),
			FirstName:   cell(row, FirstNameColumn),
		}
		if !present(c.PhoneNumber) || !present(c.FirstName) {
			rejected++
			continue
		}
		contacts = append(contacts, c)
	}
	return contacts, rejected
}

// Import parses data and normalizes its first sheet into a batch.
func Import(fileName string, data []byte) (*Batch, error) {
	grid, err := ParseWorkbook(data)
	if err != nil {
		return nil, appErrors.NewParseError(fileName, err)
	}
	contacts, rejected := NormalizeContacts(grid)
	return &Batch{FileName: fileName, Contacts: contacts, Rejected: rejected}, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// present reports whether a cell holds a value. The parser already blanks
// numeric zero cells, so a text "0" counts as present.
func present(v string) bool {
	return v != ""
}
