package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// safeJoin canonicalizes root/relPath and verifies the result stays
// under root, per spec.md §4.1's containment requirement for both
// /media and UI asset serving. It rejects any path containing a ".."
// component outright, even before canonicalizing, matching the
// explicit "reject path components equal to .." rule for UI assets.
//
// Validation chain follows the upload-dir idiom: Clean -> lexical
// containment -> EvalSymlinks -> containment again. A symlink inside
// root that points outside it passes the lexical check (the path
// string still starts with root) but is caught by the second,
// resolved-path check, matching the Clean -> IsAbs -> EvalSymlinks ->
// denylist -> upload-dir chain.
func safeJoin(root, relPath string) (string, bool) {
	for _, part := range strings.Split(relPath, "/") {
		if part == ".." {
			return "", false
		}
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	joined := filepath.Join(rootAbs, filepath.FromSlash(relPath))
	cleaned := filepath.Clean(joined)
	if cleaned != rootAbs && !strings.HasPrefix(cleaned, rootAbs+string(filepath.Separator)) {
		return "", false
	}

	// rootResolved follows any symlink on the root itself (e.g. a
	// media root that is a symlink to the real storage volume).
	rootResolved, err := filepath.EvalSymlinks(rootAbs)
	if err != nil {
		// Root doesn't exist or can't be resolved; nothing to serve
		// either way, let the caller's Stat turn this into a 404.
		return cleaned, true
	}

	resolved, err := filepath.EvalSymlinks(cleaned)
	if err != nil {
		// Target doesn't exist yet (or a dangling symlink); no
		// escape has actually occurred, let Stat 404 it.
		return cleaned, true
	}
	if resolved != rootResolved && !strings.HasPrefix(resolved, rootResolved+string(filepath.Separator)) {
		return "", false
	}
	return resolved, true
}

// serveFile streams a regular file with containment already verified
// by the caller, setting Last-Modified when known and honouring HEAD.
func serveFile(w http.ResponseWriter, r *http.Request, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeJSON(w, http.StatusNotFound, envelope{"error": "not_found"})
		return
	}

	f, err := os.Open(path)
	if err != nil {
		writeJSON(w, http.StatusNotFound, envelope{"error": "not_found"})
		return
	}
	defer f.Close()

	w.Header().Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}
