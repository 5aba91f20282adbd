package batch

import (
	"bytes"

	"github.com/klauspost/compress/zip"
)

// archiveWriter builds a zip in memory. Entries are stored without
// compression and without timestamps so equal inputs give equal archives.
type archiveWriter struct {
	buf bytes.Buffer
	zw  *zip.Writer
}

func newArchiveWriter() *archiveWriter {
	a := &archiveWriter{}
	a.zw = zip.NewWriter(&a.buf)
	return a
}

func (a *archiveWriter) add(name string, data []byte) error {
	w, err := a.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// close finishes the central directory and returns the archive bytes.
func (a *archiveWriter) close() ([]byte, error) {
	if err := a.zw.Close(); err != nil {
		return nil, err
	}
	return a.buf.Bytes(), nil
}
