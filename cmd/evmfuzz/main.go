package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/0xalpharush/evmlibfuzzer/pkg/action"
	"github.com/0xalpharush/evmlibfuzzer/pkg/config"
	"github.com/0xalpharush/evmlibfuzzer/pkg/corpus"
	"github.com/0xalpharush/evmlibfuzzer/pkg/harness"
	"github.com/0xalpharush/evmlibfuzzer/pkg/oracle"
)

// 命令行参数
var (
	configPath = flag.String("config", "./config/evmfuzz.yaml", "Configuration file path")
	mode       = flag.String("mode", "replay", "Mode: replay, seed, inspect, mutate, crossover")
	inputPath  = flag.String("input", "", "Input file (default: every input in the corpus directory)")
	otherPath  = flag.String("other", "", "Second input file for crossover")
	corpusDir  = flag.String("corpus", "", "Corpus directory (overrides config)")
	strategy   = flag.String("strategy", "", "Run one named mutation/crossover strategy")
	seed       = flag.Uint("seed", 0, "Seed for mutate/crossover")
	maxSize    = flag.Int("max-size", 0, "Output size limit for mutate/crossover (overrides config)")
	save       = flag.Bool("save", false, "Save mutate/crossover output into the corpus")
	format     = flag.String("format", "text", "Report format for replay (text, json)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	// 设置日志
	if *verbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		if *verbose || !errors.Is(err, os.ErrNotExist) {
			log.Printf("Warning: Failed to load config file, using defaults: %v", err)
		}
		cfg = config.Default()
	}

	// 覆盖配置值（如果命令行参数提供）
	if *corpusDir != "" {
		cfg.Corpus.Dir = *corpusDir
	}
	if *maxSize > 0 {
		cfg.Harness.MaxInputSize = *maxSize
	}
	if *verbose {
		cfg.Harness.Verbose = true
	}

	printConfig(cfg)

	h, err := harness.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create harness: %v", err)
	}
	store, err := corpus.NewStore(cfg.Corpus.Dir)
	if err != nil {
		log.Fatalf("Failed to open corpus: %v", err)
	}

	switch *mode {
	case "replay":
		os.Exit(runReplay(h, store))
	case "seed":
		runSeed(store)
	case "inspect":
		runInspect()
	case "mutate":
		runMutate(h, store)
	case "crossover":
		runCrossover(h, store)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown mode %q\n\n", *mode)
		flag.Usage()
		os.Exit(2)
	}
}

// printConfig 打印配置信息
func printConfig(cfg *config.Config) {
	if !*verbose {
		return
	}

	fmt.Println("\n=== EVM Fuzz Configuration ===")
	fmt.Printf("Mode: %s\n", *mode)
	if cfg.Harness.Bytecode == "" && cfg.Harness.BytecodeFile == "" {
		fmt.Printf("Target: reference contract (call_limit=%d, equality_bug=%v)\n",
			cfg.Harness.Reference.CallLimit, !cfg.Harness.Reference.DisableEqualityBug)
	} else {
		fmt.Printf("Target: %s%s\n", cfg.Harness.BytecodeFile, abbreviate(cfg.Harness.Bytecode))
	}
	fmt.Printf("Gas Limit: %d\n", cfg.Sandbox.GasLimit)
	fmt.Printf("Fork: %s\n", cfg.ExecutionConfig().Fork)
	fmt.Printf("Max Repeat: %d\n", cfg.Mutation.MaxRepeat)
	fmt.Printf("Nudge: %v (max delta %d)\n", cfg.Mutation.EnableNudge, cfg.Mutation.NudgeMaxDelta)
	fmt.Printf("Max Input Size: %d\n", cfg.Harness.MaxInputSize)
	fmt.Printf("Corpus: %s\n", cfg.Corpus.Dir)
	fmt.Println("==============================")
}

// loadInputs 读取 -input 指定的文件，否则读取整个语料目录
func loadInputs(store *corpus.Store) []corpus.Entry {
	if *inputPath != "" {
		data, err := os.ReadFile(*inputPath)
		if err != nil {
			log.Fatalf("Failed to read input: %v", err)
		}
		return []corpus.Entry{{Name: filepath.Base(*inputPath), Path: *inputPath, Data: data}}
	}

	entries, err := store.Load()
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}
	if len(entries) == 0 {
		log.Fatalf("No inputs: pass -input or run -mode seed first")
	}
	return entries
}

// replayResult 单个输入的重放结果
type replayResult struct {
	Input    string `json:"input"`
	Tier     string `json:"tier"`
	Sequence string `json:"sequence"`
	Report   string `json:"report"`
	Error    string `json:"error,omitempty"`
}

// runReplay 重放输入，发现失败时返回退出码 1
func runReplay(h *harness.Harness, store *corpus.Store) int {
	entries := loadInputs(store)

	var results []replayResult
	failures := 0
	for _, entry := range entries {
		seq, tier := action.DecodeWithTier(entry.Data)
		report, err := h.Oracle().Run(seq)

		result := replayResult{
			Input:    entry.Name,
			Tier:     tier.String(),
			Sequence: seq.String(),
			Report:   report.String(),
		}
		if err != nil {
			failures++
			result.Error = err.Error()
			saveFinding(store, entry.Data, seq, err)
		}
		results = append(results, result)
	}

	switch *format {
	case "json":
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal JSON: %v", err)
		}
		fmt.Println(string(data))
	default:
		printResults(results)
	}

	log.Printf("Replayed %d inputs, %d failures", len(entries), failures)
	if failures > 0 {
		return 1
	}
	return 0
}

// saveFinding 把失败输入写入语料的 findings 目录
func saveFinding(store *corpus.Store, data []byte, seq action.Sequence, err error) {
	finding := corpus.Finding{
		Kind:     oracle.StateFault.String(),
		Step:     -1,
		Message:  err.Error(),
		Sequence: seq.String(),
	}
	var violation *oracle.InvariantViolation
	var fault *oracle.EngineFault
	switch {
	case errors.As(err, &violation):
		finding.Kind = oracle.StateInvariantViolation.String()
		finding.Step = violation.Step
	case errors.As(err, &fault):
		finding.Step = fault.Step
	}

	if _, saveErr := store.SaveFinding(data, finding); saveErr != nil {
		log.Printf("Warning: Failed to save finding: %v", saveErr)
	}
}

// printResults 打印重放结果
func printResults(results []replayResult) {
	fmt.Println("\n=== Replay Results ===")
	for idx, r := range results {
		fmt.Printf("Input #%d: %s (%s)\n", idx+1, r.Input, r.Tier)
		fmt.Printf("  Sequence: %s\n", r.Sequence)
		fmt.Printf("  Report: %s\n", r.Report)
		if r.Error != "" {
			fmt.Printf("  ❌ %s\n", r.Error)
		}
	}
	fmt.Println("======================")
}

// runSeed 写入初始种子
func runSeed(store *corpus.Store) {
	for i, data := range corpus.EncodedSeeds() {
		path, err := store.Save(data)
		if err != nil {
			log.Fatalf("Failed to save seed %d: %v", i, err)
		}
		log.Printf("Seed #%d -> %s", i, path)
	}
}

// runInspect 解码输入并打印序列与所用的解码层
func runInspect() {
	if *inputPath == "" {
		log.Fatalf("inspect requires -input")
	}
	data, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}

	seq, tier := action.DecodeWithTier(data)
	fmt.Printf("Input: %s (%d bytes)\n", *inputPath, len(data))
	fmt.Printf("Tier: %s\n", tier)
	fmt.Printf("Actions: %d\n", len(seq))
	for i, a := range seq {
		fmt.Printf("  [%d] %s\n", i, a)
	}
	if tier != action.TierCanonical {
		fmt.Printf("Canonical: %s\n", hex.EncodeToString(action.Encode(seq)))
	}
}

// runMutate 对输入执行一次变异
func runMutate(h *harness.Harness, store *corpus.Store) {
	data := readInput(*inputPath, "mutate")
	limit := h.Config().Harness.MaxInputSize
	if len(data) > limit {
		data = data[:limit]
	}
	buf := make([]byte, limit)
	copy(buf, data)

	var n int
	if *strategy != "" {
		var err error
		n, err = h.MutationEngine().MutateWith(*strategy, buf, len(data), limit, uint32(*seed))
		if err != nil {
			log.Fatalf("Mutation failed: %v", err)
		}
	} else {
		n = h.Mutate(buf, len(data), limit, uint32(*seed))
	}
	emit(store, buf[:n])
}

// runCrossover 组合两个输入
func runCrossover(h *harness.Harness, store *corpus.Store) {
	a := readInput(*inputPath, "crossover")
	b := readInput(*otherPath, "crossover")
	out := make([]byte, h.Config().Harness.MaxInputSize)

	var n int
	if *strategy != "" {
		var err error
		n, err = h.CrossoverEngine().CombineWith(*strategy, a, b, out, uint32(*seed))
		if err != nil {
			log.Fatalf("Crossover failed: %v", err)
		}
	} else {
		n = h.Crossover(a, b, out, uint32(*seed))
	}
	emit(store, out[:n])
}

func readInput(path, what string) []byte {
	if path == "" {
		log.Fatalf("%s requires -input (and -other for crossover)", what)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}
	return data
}

// emit 打印结果，-save 时写入语料
func emit(store *corpus.Store, data []byte) {
	seq, tier := action.DecodeWithTier(data)
	fmt.Printf("Output: %d bytes (%s)\n", len(data), tier)
	fmt.Printf("Sequence: %s\n", seq)
	fmt.Printf("Hex: %s\n", hex.EncodeToString(data))

	if *save {
		path, err := store.Save(data)
		if err != nil {
			log.Fatalf("Failed to save output: %v", err)
		}
		log.Printf("Saved to %s", path)
	}
}

func abbreviate(code string) string {
	code = strings.TrimSpace(code)
	if len(code) > 18 {
		return code[:18] + "..."
	}
	return code
}

// printUsage 使用说明
func printUsage() {
	fmt.Fprint(os.Stderr, `
evmfuzz - structure-aware stateful invariant fuzzing harness

Usage:
  evmfuzz -mode <MODE> [options]

Modes:
  replay     Replay -input (or the whole corpus) and check the invariant after every action
  seed       Write the initial seed sequences into the corpus
  inspect    Decode -input and print the action sequence
  mutate     Apply one mutation to -input with -seed
  crossover  Combine -input and -other with -seed

Options:
  -config string    Configuration file path (default: ./config/evmfuzz.yaml)
  -input string     Input file
  -other string     Second input file (crossover)
  -corpus string    Corpus directory (overrides config)
  -strategy string  Run one named strategy (mutate/crossover)
  -seed uint        Seed (default: 0)
  -max-size int     Output size limit (overrides config)
  -save             Save mutate/crossover output into the corpus
  -format string    Replay output format: text, json (default: text)
  -verbose          Enable verbose logging

Examples:
  evmfuzz -mode seed -corpus ./corpus
  evmfuzz -mode replay -corpus ./corpus
  evmfuzz -mode mutate -input ./corpus/inputs/<name> -seed 7 -save
  evmfuzz -mode crossover -input a.bin -other b.bin -strategy extend
`)
}
