package csvsource

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"txledger/internal/domain"
)

// InvalidRow is a data row whose first column is not a transaction hash.
// Line is the 1-based line in the source file.
type InvalidRow struct {
	Line  int
	Value string
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) ParseFile(filePath string) ([]domain.TransactionHash, []InvalidRow, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()
	return p.ReadHashes(file)
}

// ReadHashes skips the header row and takes the hash from the first column
// of every other row. Empty rows are ignored.
func (p *Parser) ReadHashes(r io.Reader) ([]domain.TransactionHash, []InvalidRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var hashes []domain.TransactionHash
	var invalid []InvalidRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}
		hash, err := domain.ParseHash(record[0])
		if err != nil {
			line, _ := reader.FieldPos(0)
			invalid = append(invalid, InvalidRow{Line: line, Value: strings.TrimSpace(record[0])})
			continue
		}
		hashes = append(hashes, hash)
	}
	return hashes, invalid, nil
}
