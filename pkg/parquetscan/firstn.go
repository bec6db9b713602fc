package parquetscan

import (
	"context"
	"fmt"

	"github.com/grafana/colscan/pkg/scan"
)

// FirstN stops a reader after n records. The batch that reaches n is cut
// short; the scan sizes its columns from the returned count.
type FirstN struct {
	scan.RecordReader
	limit int
	read  int
}

var _ scan.RecordReader = (*FirstN)(nil)

func NewFirstN(r scan.RecordReader, n int) *FirstN {
	return &FirstN{RecordReader: r, limit: n}
}

func (f *FirstN) Next(ctx context.Context) (int, error) {
	if f.read >= f.limit {
		return 0, nil
	}
	n, err := f.RecordReader.Next(ctx)
	if err != nil {
		return 0, err
	}
	if rest := f.limit - f.read; n > rest {
		n = rest
	}
	f.read += n
	return n, nil
}

func (f *FirstN) String() string {
	return fmt.Sprintf("first %d of %v", f.limit, f.RecordReader)
}

func (f *FirstN) Path() string {
	if p, ok := f.RecordReader.(scan.Pather); ok {
		return p.Path()
	}
	return ""
}
