// Package verify computes local file information and compares it with the
// sizes and checksums reported by the catalog.
package verify

import (
	"fmt"
	"hash/adler32"
	"io"
	"path/filepath"
	"sort"

	"github.com/glorpus-work/opendata/pkg/errutils"
	"github.com/glorpus-work/opendata/pkg/model"
	"github.com/spf13/afero"
)

// ChecksumPrefix is the algorithm tag used by the catalog.
const ChecksumPrefix = "adler32:"

// Verifier reads files through an afero filesystem.
type Verifier struct {
	Fs afero.Fs
}

// New creates a Verifier. A nil fs means the OS filesystem.
func New(fs afero.Fs) *Verifier {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Verifier{Fs: fs}
}

// FormatChecksum renders an Adler-32 value as "adler32:" plus 8 zero-padded lowercase hex digits.
func FormatChecksum(sum uint32) string {
	return fmt.Sprintf("%s%08x", ChecksumPrefix, sum)
}

// ChecksumReader streams r through Adler-32.
func ChecksumReader(r io.Reader) (string, error) {
	h := adler32.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return FormatChecksum(h.Sum32()), nil
}

// Checksum computes the checksum of the file at path.
func (v *Verifier) Checksum(path string) (string, error) {
	f, err := v.Fs.Open(path)
	if err != nil {
		return "", errutils.Wrap(err, "open for checksum")
	}
	defer func() { _ = f.Close() }()

	sum, err := ChecksumReader(f)
	if err != nil {
		return "", errutils.Wrapf(err, "hashing %s", path)
	}
	return sum, nil
}

// FileInfo computes size and checksum of a single file.
func (v *Verifier) FileInfo(path string) (model.LocalFileInfo, error) {
	st, err := v.Fs.Stat(path)
	if err != nil {
		return model.LocalFileInfo{}, errutils.Wrapf(err, "stat %s", path)
	}
	sum, err := v.Checksum(path)
	if err != nil {
		return model.LocalFileInfo{}, err
	}
	return model.LocalFileInfo{Name: filepath.Base(path), Size: st.Size(), Checksum: sum}, nil
}

// LocalInfo scans dir and returns one entry per regular file, sorted by name.
// A missing directory yields an empty list.
func (v *Verifier) LocalInfo(dir string) ([]model.LocalFileInfo, error) {
	exists, err := afero.DirExists(v.Fs, dir)
	if err != nil {
		return nil, errutils.Wrapf(err, "stat %s", dir)
	}
	if !exists {
		return []model.LocalFileInfo{}, nil
	}

	entries, err := afero.ReadDir(v.Fs, dir)
	if err != nil {
		return nil, errutils.Wrapf(err, "read %s", dir)
	}

	infos := make([]model.LocalFileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := v.FileInfo(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Verify checks the local files against the remote manifest. The file count must match,
// then each remote entry is compared in remote order, size first and checksum second.
// The first mismatch is returned and the remaining files are not compared.
// Progress lines are written to w when it is not nil.
func Verify(w io.Writer, local []model.LocalFileInfo, remote []model.FileEntry) error {
	if len(local) != len(remote) {
		return errutils.ErrCountMismatchWithDetails(len(remote), len(local))
	}

	byName := make(map[string]model.LocalFileInfo, len(local))
	for _, l := range local {
		byName[l.Name] = l
	}

	for _, r := range remote {
		if err := VerifyFile(w, r, byName[r.Name()]); err != nil {
			return err
		}
	}
	return nil
}

// VerifyFile compares one remote entry with its local counterpart. A zero LocalFileInfo
// stands for a missing file and always mismatches.
func VerifyFile(w io.Writer, remote model.FileEntry, local model.LocalFileInfo) error {
	if w == nil {
		w = io.Discard
	}
	name := remote.Name()
	_, _ = fmt.Fprintf(w, "==> Verifying file %s... \n", name)
	_, _ = fmt.Fprintf(w, "  -> expected size %d, found %d\n", remote.Size, local.Size)
	if remote.Size != local.Size {
		return errutils.ErrSizeMismatchWithDetails(name, remote.Size, local.Size)
	}
	_, _ = fmt.Fprintf(w, "  -> expected checksum %s, found %s\n", remote.Checksum, local.Checksum)
	if remote.Checksum != local.Checksum {
		return errutils.ErrChecksumMismatchWithDetails(name, remote.Checksum, local.Checksum)
	}
	return nil
}
