package artifactcache

import (
	"io"
	"os"

	"github.com/opencontainers/go-digest"
)

// Cache keys are deterministic joins over semantic tuples. Each key family
// carries its own prefix and arity, so tuples from different families can
// never collide as long as identifiers stay within one alphabet.

// BuildKey derives the key for a compiled build artifact.
func BuildKey(repo, commit, buildType string) string {
	return "build:" + repo + ":" + commit + ":" + buildType
}

// BindingKey derives the key for generated binding code.
func BindingKey(repo, generator, commit string) string {
	return "binding:" + repo + ":" + generator + ":" + commit
}

// DependencyKey derives the key for a resolved dependency.
func DependencyKey(name, version string) string {
	return "dep:" + name + ":" + version
}

// FileKey derives the key under which a file's content hash is cached.
// The key covers the path only; pair it with HashFile to detect content
// changes independent of the path.
func FileKey(path string) string {
	return "hash:" + path
}

const hashChunkSize = 4096

// HashFile computes the sha256 digest of a file's contents, streaming in
// fixed-size chunks. Returns the hex digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	d := digest.SHA256.Digester()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(d.Hash(), f, buf); err != nil {
		return "", err
	}
	return d.Digest().Encoded(), nil
}
