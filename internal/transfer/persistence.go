package transfer

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/adlsfs/adlsfs/internal/filesystem"
	"github.com/adlsfs/adlsfs/internal/restclient"
)

// checkpoint is the gob-serializable subset of a TransferClient's state:
// everything except the worker pool, callbacks, and function pointers.
type checkpoint struct {
	Files      map[string]*FileTransfer
	Chunks     map[string]*Chunk
	FileBucket map[string]string
	ChunkBucket map[string]string
	ChunkBy    map[string][]string
}

// summary is the human-readable YAML sidecar written alongside each
// checkpoint, for operability without decoding the binary blob.
//
// Grounded on the teacher's internal/config dual format (binary cache plus
// YAML-described metadata, per internal/cache/persistent.go's pairing).
type summary struct {
	Files []fileSummary `yaml:"files"`
}

type fileSummary struct {
	Src         string `yaml:"src"`
	Dst         string `yaml:"dst"`
	State       string `yaml:"state"`
	ChunksTotal int    `yaml:"chunks_total"`
	ChunksDone  int    `yaml:"chunks_done"`
}

// save writes c's checkpoint via temp-file-plus-rename, then a best-effort
// YAML summary alongside it. Returns the first error encountered.
//
// Grounded on internal/config.SaveToFile's MkdirAll-then-WriteFile pattern,
// generalized to a temp-file-plus-rename sequence for atomicity under
// concurrent writers (SaveToFile's single os.WriteFile is not itself atomic
// across a crash mid-write; a transfer checkpoint must survive that).
func save(c *TransferClient) error {
	c.mu.Lock()
	cp := checkpoint{
		Files:       c.Files,
		Chunks:      c.Chunks,
		FileBucket:  c.FileState.Snapshot(),
		ChunkBucket: c.ChunkState.Snapshot(),
		ChunkBy:     c.ChunkBy,
	}
	sum := buildSummary(c)
	c.mu.Unlock()

	if err := os.MkdirAll(c.cfg.PersistPath, 0750); err != nil {
		return err
	}

	name := c.checkpointName()
	path := filepath.Join(c.cfg.PersistPath, name+".gob")

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(cp); err != nil {
		return err
	}
	if err := atomicWrite(path, buf.Bytes()); err != nil {
		return err
	}

	yamlBytes, err := yaml.Marshal(sum)
	if err == nil {
		_ = atomicWrite(filepath.Join(c.cfg.PersistPath, name+".yaml"), yamlBytes)
	}
	return nil
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func buildSummary(c *TransferClient) summary {
	var sum summary
	for key, ft := range c.Files {
		st, _ := c.FileState.Get(key)
		done := 0
		for _, n := range c.ChunkBy[key] {
			if cst, _ := c.ChunkState.Get(n); cst == ChunkFinished {
				done++
			}
		}
		sum.Files = append(sum.Files, fileSummary{
			Src: ft.Src, Dst: ft.Dst, State: st,
			ChunksTotal: len(c.ChunkBy[key]), ChunksDone: done,
		})
	}
	return sum
}

// Load reads every checkpoint under dir, keyed by its checkpoint name. A
// corrupt checkpoint is skipped rather than failing the whole load, per the
// "tolerate corrupt reads" contract: each entry's state is restored into a
// fresh TransferClient bound to fs/rc/cfg, ready for Run to resume only the
// non-Finished chunks.
func Load(dir string, fs *filesystem.FileSystem, rc *restclient.Client, cfg Config) (map[string]*TransferClient, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*TransferClient{}, nil
		}
		return nil, err
	}

	out := make(map[string]*TransferClient)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".gob" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var cp checkpoint
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&cp); err != nil {
			continue // corrupt checkpoint: skip, per the tolerate-corrupt-reads contract
		}

		client := New(fs, rc, cfg)
		client.Files = cp.Files
		client.Chunks = cp.Chunks
		client.ChunkBy = cp.ChunkBy
		client.FileState.Restore(cp.FileBucket)
		client.ChunkState.Restore(cp.ChunkBucket)

		name := e.Name()[:len(e.Name())-len(".gob")]
		out[name] = client
	}
	return out, nil
}

// ClearSaved removes a client's checkpoint and summary files from disk.
func ClearSaved(dir string, c *TransferClient) error {
	name := c.checkpointName()
	_ = os.Remove(filepath.Join(dir, name+".yaml"))
	return os.Remove(filepath.Join(dir, name+".gob"))
}
