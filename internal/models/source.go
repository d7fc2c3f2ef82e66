package models

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Source is an opaque byte source for every pipeline operation. The bytes are
// owned by the caller; the pipeline references them without copying.
type Source struct {
	Name string
	Data []byte
}

func NewSource(name string, data []byte) *Source {
	return &Source{Name: name, Data: data}
}

func (s *Source) Size() int64 {
	return int64(len(s.Data))
}

// Ext returns the lower-cased filename extension without the leading dot, or
// an empty string for unnamed buffers.
func (s *Source) Ext() string {
	if s.Name == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(s.Name)), ".")
}

// Identity is a stable proxy for byte identity used in cache and dedup keys.
// Name plus length is cheap and good enough for repeated calls on the same
// upload.
func (s *Source) Identity() string {
	if s.Name != "" {
		return s.Name + "-" + strconv.FormatInt(s.Size(), 10)
	}
	return "buffer-" + strconv.FormatInt(s.Size(), 10)
}
