package polcount

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path"

	"github.com/cespare/xxhash/v2"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// snapshot is the persisted state of a counter: the digest of its dictionary
// and the indices of the active entries.
type snapshot struct {
	DictDigest string
	Active     []int
}

type storageMgr struct {
	Folder string

	snapshotPath string
}

func newStorageMgr(folder string) (*storageMgr, error) {
	if _, err := os.Stat(folder); os.IsNotExist(err) {
		return nil, fmt.Errorf("storage dir %s do not exists", folder)
	}
	return &storageMgr{Folder: folder, snapshotPath: path.Join(folder, snapshotFileName)}, nil
}

// LoadSnapshot returns nil without error if no snapshot was dumped yet.
func (s *storageMgr) LoadSnapshot() (*snapshot, error) {
	binData, err := os.ReadFile(s.snapshotPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	st := &structpb.Struct{}
	if err := proto.Unmarshal(binData, st); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", s.snapshotPath, err)
	}

	snap := &snapshot{DictDigest: st.Fields["dict"].GetStringValue()}
	for _, v := range st.Fields["active"].GetListValue().GetValues() {
		snap.Active = append(snap.Active, int(v.GetNumberValue()))
	}
	return snap, nil
}

func (s *storageMgr) DumpSnapshot(snap *snapshot) error {
	active := make([]interface{}, 0, len(snap.Active))
	for _, idx := range snap.Active {
		active = append(active, idx)
	}
	st, err := structpb.NewStruct(map[string]interface{}{
		"dict":   snap.DictDigest,
		"active": active,
	})
	if err != nil {
		return err
	}
	binData, err := proto.Marshal(st)
	if err != nil {
		return err
	}

	// replace atomically
	tmpPath := s.snapshotPath + ".tmp"
	if err := os.WriteFile(tmpPath, binData, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.snapshotPath)
}

func (s *storageMgr) removeSnapshot() error {
	err := os.Remove(s.snapshotPath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// loadDictionary reads one pattern per line, skipping blank lines.
func loadDictionary(fileName string) ([]string, error) {
	fp, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	var patterns []string
	scanner := bufio.NewScanner(fp)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTokenSize)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			patterns = append(patterns, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary %s: %w", fileName, err)
	}
	return patterns, nil
}

// dictionaryDigest identifies a dictionary, entry order included.
func dictionaryDigest(patterns []string) string {
	d := xxhash.New()
	lenBuf := [8]byte{}
	for _, p := range patterns {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(p)))
		_, _ = d.Write(lenBuf[:])
		_, _ = d.WriteString(p)
	}
	return fmt.Sprintf("%016x", d.Sum64())
}
