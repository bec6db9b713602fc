package scan

import (
	"path"
	"strconv"
	"strings"

	"github.com/grafana/colscan/pkg/types"
	"github.com/grafana/colscan/pkg/vector"
)

// ImplicitColumn is a per reader constant column. A nil Value fills the
// column with nulls.
type ImplicitColumn struct {
	Name  string
	Value *string
}

func NewImplicitColumn(name, value string) ImplicitColumn {
	return ImplicitColumn{Name: name, Value: &value}
}

const (
	ImplicitFilename = "filename"
	ImplicitSuffix   = "suffix"
	ImplicitFQN      = "fqn"
	ImplicitFilepath = "filepath"
	// ImplicitDirPrefix is followed by the depth of the partition directory.
	ImplicitDirPrefix = "dir"
)

// FileImplicitColumns describes file as seen from the scan's selection root.
// dir0 to dir<depth-1> hold the partition directories between the root and
// the file; those deeper than the file are null.
func FileImplicitColumns(file, selectionRoot string, depth int) []ImplicitColumn {
	file = path.Clean(file)
	name := path.Base(file)
	dir := path.Dir(file)

	cols := []ImplicitColumn{
		NewImplicitColumn(ImplicitFilename, name),
		NewImplicitColumn(ImplicitSuffix, strings.TrimPrefix(path.Ext(name), ".")),
		NewImplicitColumn(ImplicitFQN, file),
		NewImplicitColumn(ImplicitFilepath, dir),
	}

	dirs := PartitionDirs(file, selectionRoot)
	for i := 0; i < depth; i++ {
		c := ImplicitColumn{Name: ImplicitDirPrefix + strconv.Itoa(i)}
		if i < len(dirs) {
			c.Value = &dirs[i]
		}
		cols = append(cols, c)
	}
	return cols
}

// PartitionDirs returns the directories between selectionRoot and file. A
// file outside the root, or an empty root, has none.
func PartitionDirs(file, selectionRoot string) []string {
	if selectionRoot == "" {
		return nil
	}
	root := strings.TrimSuffix(path.Clean(selectionRoot), "/")
	dir := path.Dir(path.Clean(file))
	if !strings.HasPrefix(dir, root+"/") {
		return nil
	}
	return strings.Split(strings.TrimPrefix(dir, root+"/"), "/")
}

// implicitColumns keeps the implicit columns of the active reader in the
// mutator.
type implicitColumns struct {
	entries []ImplicitColumn
	columns []*vector.VarWidth
}

// apply switches to the entries of a new reader. Columns of keys the previous
// reader had and this one lacks are removed, which marks the schema changed.
func (ic *implicitColumns) apply(m *Mutator, entries []ImplicitColumn) error {
	keep := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		keep[strings.ToLower(e.Name)] = struct{}{}
	}
	for _, e := range ic.entries {
		if _, ok := keep[strings.ToLower(e.Name)]; !ok {
			m.RemoveField(e.Name)
		}
	}

	columns := make([]*vector.VarWidth, 0, len(entries))
	for _, e := range entries {
		col, err := AddTypedField[*vector.VarWidth](m, types.NewField(e.Name, types.Optional(types.MinorVarChar)))
		if err != nil {
			return err
		}
		columns = append(columns, col)
	}
	ic.entries, ic.columns = entries, columns
	return nil
}

// fill writes n copies of every value.
func (ic *implicitColumns) fill(n int) error {
	for i, col := range ic.columns {
		if err := col.Allocate(n); err != nil {
			return err
		}
		v := ic.entries[i].Value
		for j := 0; j < n; j++ {
			if v == nil {
				col.SetNull(j)
			} else {
				col.SetString(j, *v)
			}
		}
		col.SetValueCount(n)
	}
	return nil
}

func (ic *implicitColumns) clear() {
	for _, col := range ic.columns {
		col.Clear()
	}
	ic.entries, ic.columns = nil, nil
}
