package pruning

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/grafana/colscan/pkg/expr"
)

// separatorByte is a byte that cannot occur in valid UTF-8 sequences
var separatorByte = []byte{255}

// Cache remembers drop decisions of row groups.
type Cache struct {
	lru *lru.Cache[uint64, bool]
}

// NewCache returns a cache of the given size, or nil when size is 0. A nil
// *Cache misses every lookup.
func NewCache(size int) (*Cache, error) {
	if size == 0 {
		return nil, nil
	}
	c, err := lru.New[uint64, bool](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

func (c *Cache) Get(key uint64) (canDrop, ok bool) {
	if c == nil {
		return false, false
	}
	canDrop, ok = c.lru.Get(key)
	if ok {
		metricCacheLookups.WithLabelValues("hit").Inc()
	} else {
		metricCacheLookups.WithLabelValues("miss").Inc()
	}
	return canDrop, ok
}

func (c *Cache) Add(key uint64, canDrop bool) {
	if c == nil {
		return
	}
	_ = c.lru.Add(key, canDrop)
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// cacheKey identifies a decision by file, row group, filter and the options
// that change how statistics read.
func cacheKey(file string, meta *FileMetadata, rowGroup int, filter expr.Expression, opts Options) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(file)
	_, _ = h.Write(separatorByte)
	_, _ = h.WriteString(meta.CreatedBy)
	_, _ = h.Write(separatorByte)
	_, _ = h.WriteString(strconv.Itoa(rowGroup))
	_, _ = h.Write(separatorByte)
	_, _ = h.WriteString(strconv.FormatInt(meta.RowGroups[rowGroup].NumRows, 10))
	_, _ = h.Write(separatorByte)
	_, _ = h.WriteString(filter.String())
	_, _ = h.Write(separatorByte)
	_, _ = h.WriteString(string(opts.DateCorrection))
	_, _ = h.WriteString(strconv.FormatBool(opts.Int96AsTimestamp))
	return h.Sum64()
}
