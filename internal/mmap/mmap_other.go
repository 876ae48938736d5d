//go:build !unix

package mmap

import (
	"io"
	"os"
)

// Without mmap the file is read into memory once.
func osMap(f *os.File, size int) ([]byte, func([]byte) error, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, nil, err
	}
	return data, nil, nil
}

func osAdvise([]byte, AccessPattern) error { return nil }
