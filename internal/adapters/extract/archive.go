package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/enzopoeta/i2a2-final/internal/domain"
)

const (
	HeaderFileSuffix = "_NFs_Cabecalho.csv"
	ItemsFileSuffix  = "_NFs_Itens.csv"

	// MaxEntryBytes caps the decompressed size of each CSV export.
	MaxEntryBytes = 256 << 20
)

// ArchiveFiles holds the two CSV exports found inside an upload archive.
type ArchiveFiles struct {
	HeaderName string
	Header     []byte
	ItemsName  string
	Items      []byte
}

// OpenArchive reads a ZIP upload fully in memory. The archive must hold
// exactly one header export and one items export, both non-empty.
func OpenArchive(data []byte) (ArchiveFiles, error) {
	return openArchive(data, MaxEntryBytes)
}

func openArchive(data []byte, limit int64) (ArchiveFiles, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ArchiveFiles{}, fmt.Errorf("%w: invalid zip file: %v", domain.ErrInvalidInput, err)
	}

	files := make([]*zip.File, 0, len(reader.File))
	for _, f := range reader.File {
		if strings.Contains(f.Name, "..") || strings.HasPrefix(f.Name, "/") {
			return ArchiveFiles{}, fmt.Errorf("%w: zip file contains invalid or malicious file paths", domain.ErrInvalidInput)
		}
		if f.FileInfo().IsDir() {
			continue
		}
		files = append(files, f)
	}
	if len(files) != 2 {
		return ArchiveFiles{}, fmt.Errorf("%w: expected 2 files in the zip, but found %d", domain.ErrInvalidInput, len(files))
	}

	var out ArchiveFiles
	var headerFile, itemsFile *zip.File
	for _, f := range files {
		base := path.Base(f.Name)
		switch {
		case strings.HasSuffix(base, HeaderFileSuffix):
			if headerFile != nil {
				return ArchiveFiles{}, fmt.Errorf("%w: multiple header files found", domain.ErrInvalidInput)
			}
			headerFile = f
		case strings.HasSuffix(base, ItemsFileSuffix):
			if itemsFile != nil {
				return ArchiveFiles{}, fmt.Errorf("%w: multiple items files found", domain.ErrInvalidInput)
			}
			itemsFile = f
		}
	}
	var missing []string
	if headerFile == nil {
		missing = append(missing, "header file (*"+HeaderFileSuffix+")")
	}
	if itemsFile == nil {
		missing = append(missing, "items file (*"+ItemsFileSuffix+")")
	}
	if len(missing) > 0 {
		return ArchiveFiles{}, fmt.Errorf("%w: missing required files: %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}

	if out.Header, err = readEntry(headerFile, limit); err != nil {
		return ArchiveFiles{}, err
	}
	if out.Items, err = readEntry(itemsFile, limit); err != nil {
		return ArchiveFiles{}, err
	}
	out.HeaderName = path.Base(headerFile.Name)
	out.ItemsName = path.Base(itemsFile.Name)
	return out, nil
}

func readEntry(f *zip.File, limit int64) ([]byte, error) {
	if f.UncompressedSize64 > uint64(limit) {
		return nil, entryTooLarge(f, limit)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrInvalidInput, f.Name, err)
	}
	defer rc.Close()
	// The declared size is not trusted; the reader is capped as well.
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidInput, f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, entryTooLarge(f, limit)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrInvalidInput, path.Base(f.Name))
	}
	return data, nil
}

func entryTooLarge(f *zip.File, limit int64) error {
	return fmt.Errorf("%w: %s exceeds the %d byte decompressed limit", domain.ErrInvalidInput, path.Base(f.Name), limit)
}

// ExtractArchive opens a ZIP upload and parses its CSV pair.
func ExtractArchive(data []byte) (Batch, error) {
	files, err := OpenArchive(data)
	if err != nil {
		return Batch{}, err
	}
	return ParseCSV(files.Header, files.Items)
}
