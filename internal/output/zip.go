package output

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Zip bundles files into outputPath, flattening them to their base names.
func Zip(ctx context.Context, filePaths []string, outputPath string) (err error) {
	if len(filePaths) == 0 {
		return fmt.Errorf("zip %s: no files", filepath.Base(outputPath))
	}
	zipFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create zip file: %w", err)
	}
	defer func() {
		if cerr := zipFile.Close(); err == nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(zipFile)
	for _, fp := range filePaths {
		select {
		case <-ctx.Done():
			zw.Close()
			return ctx.Err()
		default:
		}

		if err := addFileToZip(zw, fp); err != nil {
			zw.Close()
			return fmt.Errorf("add %s to zip: %w", fp, err)
		}
	}
	return zw.Close()
}

func addFileToZip(zw *zip.Writer, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(filename)
	// PNG and PDF payloads are already compressed
	header.Method = zip.Store

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(writer, file)
	return err
}
