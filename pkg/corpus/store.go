package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// 语料目录布局
const (
	inputsDir   = "inputs"
	findingsDir = "findings"
)

// ErrNoDir 未配置语料目录
var ErrNoDir = errors.New("corpus directory not configured")

// Entry 语料中的一个输入
type Entry struct {
	Name string
	Path string
	Data []byte
}

// Finding 导致失败的输入及其描述
type Finding struct {
	Input     string `json:"input"`      // 输入文件名
	Kind      string `json:"kind"`       // fault / invariant-violation
	Step      int    `json:"step"`       // 失败的步骤
	Message   string `json:"message"`    // 错误描述
	Sequence  string `json:"sequence"`   // 解码后的序列
	FoundAt   string `json:"found_at"`   // RFC3339 时间
	InputSize int    `json:"input_size"` // 输入字节数
}

// Store 基于目录的语料存储，文件名为内容的 Keccak-256
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore 创建语料存储
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, ErrNoDir
	}
	return &Store{dir: dir}, nil
}

// Dir 返回语料根目录
func (s *Store) Dir() string {
	return s.dir
}

// Name 返回内容对应的文件名
func Name(data []byte) string {
	return strings.TrimPrefix(crypto.Keccak256Hash(data).Hex(), "0x")
}

// Save 保存一个输入，相同内容只写一次
func (s *Store) Save(data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, inputsDir, Name(data))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Load 读取全部输入，按文件名排序
func (s *Store) Load() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.dir, inputsDir)
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read corpus directory: %w", err)
	}

	var entries []Entry
	for _, file := range files {
		if file.IsDir() || strings.HasSuffix(file.Name(), ".tmp") {
			continue
		}
		path := filepath.Join(dir, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		entries = append(entries, Entry{Name: file.Name(), Path: path, Data: data})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// SaveFinding 保存失败输入和它的描述文件（<name>.json）
func (s *Store) SaveFinding(data []byte, finding Finding) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := Name(data)
	dir := filepath.Join(s.dir, findingsDir)
	if err := writeAtomic(filepath.Join(dir, name), data); err != nil {
		return "", err
	}

	finding.Input = name
	finding.InputSize = len(data)
	if finding.FoundAt == "" {
		finding.FoundAt = time.Now().UTC().Format(time.RFC3339)
	}
	meta, err := json.MarshalIndent(finding, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal finding: %w", err)
	}
	path := filepath.Join(dir, name+".json")
	if err := writeAtomic(path, meta); err != nil {
		return "", err
	}

	log.Printf("[Corpus] 保存失败输入: %s (%s)", path, finding.Kind)
	return path, nil
}

// LoadFindings 读取全部失败描述
func (s *Store) LoadFindings() ([]Finding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, findingsDir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	findings := make([]Finding, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		var finding Finding
		if err := json.Unmarshal(data, &finding); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		findings = append(findings, finding)
	}
	return findings, nil
}

// writeAtomic 先写临时文件，再重命名
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
