// Package save writes normalized zones back to disk as master files.
package save

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lanrat/zonepush/zone"
	"github.com/miekg/dns"
)

// File represents the zone file to create on disk
type File struct {
	filename    string
	filenameTmp string
	bufWriter   *bufio.Writer
	gzWriter    *gzip.Writer
	fileWriter  *os.File
	records     int64
	closed      bool
}

// New returns a handle to a new zonefile.
// Names ending in .gz are gzip compressed.
func New(filename string) *File {
	f := new(File)
	f.filename = filename
	f.filenameTmp = fmt.Sprintf("%s.tmp", f.filename)
	return f
}

// Records returns the number of records written to the zone file
func (f *File) Records() int64 {
	return f.records
}

// WriteComment adds a comment to the zone file
func (f *File) WriteComment(comment string) error {
	err := f.fileReady()
	if err != nil {
		return err
	}
	_, err = f.bufWriter.WriteString(fmt.Sprintf("; %s", comment))
	return err
}

// WriteCommentKey adds a comment to the zone file
func (f *File) WriteCommentKey(key, value string) error {
	return f.WriteComment(fmt.Sprintf("%s: %s\n", key, value))
}

// ErrFileClosed returned when attempting to write to a closed file
var ErrFileClosed = errors.New("file is already closed")

// fileReady internal function to ensure that the file is ready before data can be written
// safe to call multiple times
func (f *File) fileReady() error {
	var err error
	if f.closed {
		return ErrFileClosed
	}
	if f.bufWriter == nil {
		f.fileWriter, err = os.Create(f.filenameTmp)
		if err != nil {
			return err
		}
		var w io.Writer = f.fileWriter
		if strings.HasSuffix(f.filename, ".gz") {
			f.gzWriter = gzip.NewWriter(f.fileWriter)
			f.gzWriter.ModTime = time.Now()
			f.gzWriter.Name = strings.TrimSuffix(filepath.Base(f.filename), ".gz")
			w = f.gzWriter
		}
		f.bufWriter = bufio.NewWriter(w)
		err = f.WriteCommentKey("timestamp", time.Now().Format(time.RFC3339))
		if err != nil {
			return err
		}
	}
	return nil
}

// StartZone writes the directives opening a zone section
func (f *File) StartZone(apex string, ttl uint32) error {
	err := f.fileReady()
	if err != nil {
		return err
	}
	_, err = f.bufWriter.WriteString(fmt.Sprintf("$ORIGIN %s\n$TTL %d\n", dns.Fqdn(apex), ttl))
	return err
}

// AddRR adds a record to a zone file
func (f *File) AddRR(rr dns.RR) error {
	// create file here on first rr
	err := f.fileReady()
	if err != nil {
		return err
	}

	_, err = f.bufWriter.WriteString(fmt.Sprintf("%s\n", zone.RRString(rr)))
	if err != nil {
		return err
	}
	f.records++
	return nil
}

// Abort stops processing the new zone file and removes it from disk
func (f *File) Abort() error {
	f.records = 0 // forces finish to remove the file
	return f.Finish()
}

// Finish adds closing comments and flushes and closes all buffers/files.
// A file without records is removed.
func (f *File) Finish() error {
	if f.closed {
		return nil
	}
	if f.records > 0 {
		// save record count comment at end of zone file
		err := f.WriteCommentKey("records", fmt.Sprintf("%d", f.records))
		if err != nil {
			return err
		}
	}
	var err error
	if f.bufWriter != nil {
		err = f.bufWriter.Flush()
		if err != nil {
			return err
		}
		if f.gzWriter != nil {
			err = f.gzWriter.Close()
			if err != nil {
				return err
			}
		}
		err = f.fileWriter.Close()
		if err != nil {
			return err
		}
		if f.records > 0 {
			err = os.Rename(f.filenameTmp, f.filename)
		} else {
			err = os.Remove(f.filenameTmp)
		}
		if err != nil {
			return err
		}
	}
	f.closed = true
	return nil
}

// Zones writes every section of zones to filename.
// Each section is preceded by its $ORIGIN and $TTL directives.
func Zones(filename string, zones zone.Zones) (int64, error) {
	f := New(filename)
	for _, z := range zones {
		if err := f.StartZone(z.Apex, z.DefaultTTL); err != nil {
			_ = f.Abort()
			return 0, err
		}
		for _, rr := range z.Records {
			if err := f.AddRR(rr); err != nil {
				_ = f.Abort()
				return 0, err
			}
		}
	}
	n := f.Records()
	return n, f.Finish()
}
