// Package remote builds rclone remote paths for content-addressed objects.
package remote

import (
	"fmt"
	"path"
	"strings"
)

// ShardPrefixLen is the number of oid characters used for directory sharding.
const ShardPrefixLen = 4

// Join joins rclone path segments.
//
// It differs from path.Join in how the first two segments meet: a root
// ending in ":" (an rclone remote name) or a first segment starting with "/"
// is concatenated directly, otherwise a single "/" is inserted. A trailing
// "/" on root is dropped first.
//
//	Join("a", "b")   // a/b
//	Join("a:", "b")  // a:b
//	Join("a:", "/b") // a:/b
//	Join("a", "/b")  // a/b
func Join(parts ...string) string {
	if len(parts) <= 1 {
		return strings.Join(parts, "")
	}

	root, first, rest := parts[0], parts[1], parts[2:]
	root = strings.TrimSuffix(root, "/")

	var p string
	if strings.HasSuffix(root, ":") || strings.HasPrefix(first, "/") {
		p = root + first
	} else {
		p = root + "/" + first
	}

	for _, seg := range rest {
		p = joinSegment(p, seg)
	}
	return p
}

// joinSegment appends one segment the way a POSIX path join does: an
// absolute segment replaces everything before it.
func joinSegment(base, seg string) string {
	switch {
	case strings.HasPrefix(seg, "/"):
		return seg
	case base == "" || strings.HasSuffix(base, "/"):
		return base + seg
	default:
		return base + "/" + seg
	}
}

// PathKey locates an object inside the store.
type PathKey struct {
	// Dir is the two-level shard directory, e.g. "ab/cd".
	Dir string
	// Name is the object file name (the full oid).
	Name string
}

// FullPath returns Dir/Name.
func (k PathKey) FullPath() string {
	return path.Join(k.Dir, k.Name)
}

// ObjectKey shards oid as <oid[0:2]>/<oid[2:4]>/<oid>.
func ObjectKey(oid string) (PathKey, error) {
	if len(oid) < ShardPrefixLen {
		return PathKey{}, fmt.Errorf("oid %q is shorter than %d characters", oid, ShardPrefixLen)
	}
	if strings.ContainsAny(oid, `/\:`) {
		return PathKey{}, fmt.Errorf("oid %q contains a path separator", oid)
	}
	return PathKey{
		Dir:  oid[0:2] + "/" + oid[2:4],
		Name: oid,
	}, nil
}

// ObjectPath returns the full remote path of oid under root.
func ObjectPath(root, oid string) (string, error) {
	key, err := ObjectKey(oid)
	if err != nil {
		return "", err
	}
	return Join(root, key.FullPath()), nil
}

// ObjectDir returns the remote shard directory of oid under root, with a
// trailing slash. rclone copies a file into a directory keeping its name.
func ObjectDir(root, oid string) (string, error) {
	key, err := ObjectKey(oid)
	if err != nil {
		return "", err
	}
	return Join(root, key.Dir+"/"), nil
}
