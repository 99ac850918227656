// Package notebook assembles Jupyter notebooks (nbformat v4.5).
//
// A Notebook collects markdown and code cells in order and writes them as
// notebook JSON. Cell ids are derived from each cell's position and source,
// so regenerating an unchanged document yields a byte-identical file.
package notebook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
)

const (
	formatMajor = 4
	formatMinor = 5
)

// Cell types
const (
	CellMarkdown = "markdown"
	CellCode     = "code"
)

// Cell is one notebook cell.
type Cell struct {
	ID             string                 `json:"id"`
	CellType       string                 `json:"cell_type"`
	Metadata       map[string]interface{} `json:"metadata"`
	Source         []string               `json:"source"`
	Outputs        []interface{}          `json:"outputs,omitempty"`
	ExecutionCount *int                   `json:"execution_count,omitempty"`
}

// codeCell has the same fields as Cell but always serializes outputs and
// execution_count, which nbformat requires on code cells.
type codeCell struct {
	ID             string                 `json:"id"`
	CellType       string                 `json:"cell_type"`
	Metadata       map[string]interface{} `json:"metadata"`
	Source         []string               `json:"source"`
	Outputs        []interface{}          `json:"outputs"`
	ExecutionCount *int                   `json:"execution_count"`
}

// MarshalJSON writes code cells with their required output fields.
func (c Cell) MarshalJSON() ([]byte, error) {
	if c.CellType == CellCode {
		outputs := c.Outputs
		if outputs == nil {
			outputs = []interface{}{}
		}
		return json.Marshal(codeCell{
			ID:             c.ID,
			CellType:       c.CellType,
			Metadata:       c.Metadata,
			Source:         c.Source,
			Outputs:        outputs,
			ExecutionCount: c.ExecutionCount,
		})
	}
	type plain Cell
	return json.Marshal(plain(c))
}

// Text returns the cell source as a single string.
func (c Cell) Text() string {
	return strings.Join(c.Source, "")
}

// Notebook is an ordered, append-only list of cells plus notebook metadata.
type Notebook struct {
	Title string
	cells []Cell
}

// New creates an empty notebook; title becomes the Colab notebook name.
func New(title string) *Notebook {
	return &Notebook{Title: title}
}

// AddMarkdown appends a markdown cell.
func (n *Notebook) AddMarkdown(text string) {
	n.add(CellMarkdown, text)
}

// AddCode appends a code cell.
func (n *Notebook) AddCode(code string) {
	n.add(CellCode, code)
}

func (n *Notebook) add(cellType, source string) {
	index := len(n.cells)
	n.cells = append(n.cells, Cell{
		ID:       cellID(index, cellType, source),
		CellType: cellType,
		Metadata: map[string]interface{}{},
		Source:   splitLines(source),
	})
}

// Cells returns the cells added so far.
func (n *Notebook) Cells() []Cell {
	return n.cells
}

// Len returns the number of cells.
func (n *Notebook) Len() int {
	return len(n.cells)
}

// cellID derives a stable id from the cell's position and content.
func cellID(index int, cellType, source string) string {
	name := fmt.Sprintf("%d\x00%s\x00%s", index, cellType, source)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// splitLines splits source the way nbformat stores it: every line keeps its
// trailing newline except the last.
func splitLines(source string) []string {
	if source == "" {
		return []string{}
	}
	lines := strings.SplitAfter(source, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

type document struct {
	Cells         []Cell                 `json:"cells"`
	Metadata      map[string]interface{} `json:"metadata"`
	NBFormat      int                    `json:"nbformat"`
	NBFormatMinor int                    `json:"nbformat_minor"`
}

// MarshalJSON renders the notebook as nbformat JSON.
func (n *Notebook) MarshalJSON() ([]byte, error) {
	cells := n.cells
	if cells == nil {
		cells = []Cell{}
	}
	return json.Marshal(document{
		Cells: cells,
		Metadata: map[string]interface{}{
			"colab": map[string]interface{}{
				"name":       n.Title,
				"provenance": []interface{}{},
			},
			"kernelspec": map[string]interface{}{
				"display_name": "Python 3",
				"language":     "python",
				"name":         "python3",
			},
			"language_info": map[string]interface{}{
				"name": "python",
			},
		},
		NBFormat:      formatMajor,
		NBFormatMinor: formatMinor,
	})
}

// Bytes returns the indented notebook JSON.
func (n *Notebook) Bytes() ([]byte, error) {
	raw, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notebook: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", " "); err != nil {
		return nil, fmt.Errorf("failed to indent notebook: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// WriteTo writes the notebook JSON to w.
func (n *Notebook) WriteTo(w io.Writer) (int64, error) {
	data, err := n.Bytes()
	if err != nil {
		return 0, err
	}
	written, err := w.Write(data)
	return int64(written), err
}

// WriteFile writes the notebook to path, validating it first when validate is set.
func (n *Notebook) WriteFile(path string, validate bool) error {
	data, err := n.Bytes()
	if err != nil {
		return err
	}
	if validate {
		if err := Validate(data); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write notebook %s: %w", path, err)
	}
	return nil
}
