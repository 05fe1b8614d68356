package output

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ArchiveName is the download name of a multi-file batch.
func ArchiveName(agreementId, batchId string) string {
	return fmt.Sprintf("%s_%s_loader_outputs.zip", agreementId, batchId)
}

// writeArchive zips files from dir into dest, entries in the given order.
func writeArchive(dest, dir string, files []string) (err error) {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(out)
	for _, name := range files {
		if err := addToArchive(zw, filepath.Join(dir, name), name); err != nil {
			_ = zw.Close()
			return fmt.Errorf("archive %s: %w", name, err)
		}
	}
	return zw.Close()
}

func addToArchive(zw *zip.Writer, path, name string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}
