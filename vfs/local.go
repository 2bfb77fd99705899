package vfs

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

// readLocalBlocking performs the actual disk read, honouring TextFile
// (spec.md §4.8 "Reads honour a TextFile flag that appends a trailing NUL").
func readLocalBlocking(fullPath string, flags Flags) ([]byte, error) {
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, errors.Wrapf(err, "vfs: read %q", fullPath)
	}
	if flags&TextFile != 0 {
		data = append(data, 0)
	}
	return data, nil
}

// statLocal stats fullPath for a CmdInfo request.
func statLocal(fullPath string) (Info, error) {
	fi, err := os.Stat(fullPath)
	if err != nil {
		return Info{}, errors.Wrapf(err, "vfs: stat %q", fullPath)
	}
	return Info{IsDir: fi.IsDir(), Size: fi.Size(), Mtime: fi.ModTime().UnixNano()}, nil
}

// writeLocalBlocking writes data to fullPath. CreateDirs recursively creates
// missing parents; Append opens for append; otherwise the write always
// stages a temp file in the directory tempDirFor picks (the destination
// directory on Windows, os.TempDir() elsewhere) and atomically renames it
// over the target, falling back to a direct write if the temp file cannot
// be created, per spec.md §4.8 and §6.
func writeLocalBlocking(fullPath string, data []byte, flags Flags) (int, error) {
	dir := filepath.Dir(fullPath)
	if flags&CreateDirs != 0 {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, errors.Wrapf(err, "vfs: create dirs for %q", fullPath)
		}
	}

	if flags&Append != 0 {
		f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return 0, errors.Wrapf(err, "vfs: append open %q", fullPath)
		}
		n, werr := f.Write(data)
		closeErr := f.Close()
		if werr != nil {
			return n, errors.Wrapf(werr, "vfs: append write %q", fullPath)
		}
		return n, closeErr
	}

	return atomicReplace(tempDirFor(dir), fullPath, data)
}

// atomicReplace stages the write in stagingDir then renames over fullPath,
// per spec.md §6 "staging file in the same directory as the target (on
// Windows) or in /tmp (on POSIX) before atomic move". A POSIX staging
// directory on a different filesystem than fullPath makes os.Rename fail;
// any rename failure removes the temp file and returns the error, leaving
// the target untouched (only a temp-create failure falls back to a direct
// write).
func atomicReplace(stagingDir, fullPath string, data []byte) (int, error) {
	tmp, err := os.CreateTemp(stagingDir, ".vfs-tmp-*")
	if err != nil {
		// Falls back to a direct (non-atomic) write, per spec.md §4.8
		// "failure to create the temp falls back to direct write".
		log.WithError(err).WithField("path", fullPath).Warn("vfs: temp file create failed, writing directly")
		return directWrite(fullPath, data)
	}
	tmpPath := tmp.Name()

	n, werr := tmp.Write(data)
	closeErr := tmp.Close()
	if werr != nil {
		os.Remove(tmpPath)
		return n, errors.Wrapf(werr, "vfs: write temp for %q", fullPath)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return n, errors.Wrapf(closeErr, "vfs: close temp for %q", fullPath)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return n, errors.Wrapf(err, "vfs: rename temp onto %q", fullPath)
	}
	return n, nil
}

func directWrite(fullPath string, data []byte) (int, error) {
	n, err := writeFileDirect(fullPath, data)
	if err != nil {
		return n, errors.Wrapf(err, "vfs: direct write %q", fullPath)
	}
	return n, nil
}

func writeFileDirect(fullPath string, data []byte) (int, error) {
	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	n, werr := f.Write(data)
	closeErr := f.Close()
	if werr != nil {
		return n, werr
	}
	return n, closeErr
}

// tempDirFor reports the staging directory every atomic write uses: the
// target directory on Windows, os.TempDir() on other platforms, per
// spec.md §6.
func tempDirFor(targetDir string) string {
	if runtime.GOOS == "windows" {
		return targetDir
	}
	return os.TempDir()
}
