package main

// dataset_gen.go is a tiny helper utility to generate deterministic
// fixed-width key datasets for standalone benchmarking of divchain
// (outside `go test`). It emits newline-separated hex-encoded byte
// strings, each exactly -width bytes, suitable for feeding
// pkg/divchain.Table.Insert/Search directly.
//
// Usage:
//
//	go run ./tools/dataset_gen -n 1000000 -width 8 -dist=zipf -seed=42 -out keys.txt
//
// Flags:
//
//	-n       number of keys to generate (default 1e6)
//	-width   key width in bytes (default 8)
//	-dist    distribution: "uniform" or "zipf" (default uniform)
//	-zipfs   Zipf s parameter (>1)  (default 1.2)
//	-zipfv   Zipf v parameter (>=1) (default 1.0)
//	-seed    RNG seed (default current time)
//	-out     output file (default stdout)
//
// © 2025 divchain authors. MIT License.

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
)

func main() {
	var (
		n       = flag.Int("n", 1_000_000, "number of keys to generate")
		width   = flag.Int("width", 8, "key width in bytes")
		dist    = flag.String("dist", "uniform", "distribution: uniform or zipf")
		zipfS   = flag.Float64("zipfs", 1.2, "zipf s parameter (>1)")
		zipfV   = flag.Float64("zipfv", 1.0, "zipf v parameter (>=1)")
		seedVal = flag.Int64("seed", time.Now().UnixNano(), "PRNG seed")
		outPath = flag.String("out", "", "output file (default stdout)")
	)
	flag.Parse()

	if *width <= 0 {
		fmt.Fprintln(os.Stderr, "width must be > 0")
		os.Exit(1)
	}

	rnd := rand.New(rand.NewSource(*seedVal))

	var gen func() uint64
	switch *dist {
	case "uniform":
		gen = rnd.Uint64
	case "zipf":
		if *zipfS <= 1.0 || *zipfV < 1.0 {
			fmt.Fprintln(os.Stderr, "zipfs must be >1 and zipfv >=1")
			os.Exit(1)
		}
		z := rand.NewZipf(rnd, *zipfS, *zipfV, ^uint64(0))
		gen = z.Uint64
	default:
		fmt.Fprintln(os.Stderr, "unknown dist:", *dist)
		os.Exit(1)
	}

	var out *os.File
	var err error
	if *outPath == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot create file:", err)
			os.Exit(1)
		}
		defer out.Close()
	}

	w := bufio.NewWriterSize(out, 1<<20)
	defer w.Flush()

	key := make([]byte, *width)
	hexBuf := make([]byte, hex.EncodedLen(*width))
	for i := 0; i < *n; i++ {
		fillKey(key, gen())
		hex.Encode(hexBuf, key)
		w.Write(hexBuf)
		w.WriteByte('\n')
	}
}

// fillKey spreads the generator's 64-bit draw across key, repeating and
// mixing in the index-independent draw for widths wider than 8 bytes so
// that every byte of a wide key still varies across the dataset.
func fillKey(key []byte, v uint64) {
	for i := 0; i+8 <= len(key); i += 8 {
		binary.LittleEndian.PutUint64(key[i:i+8], v)
		v = v*6364136223846793005 + 1 // splitmix-style increment for the next 8-byte lane
	}
	if rem := len(key) % 8; rem > 0 {
		var tail [8]byte
		binary.LittleEndian.PutUint64(tail[:], v)
		copy(key[len(key)-rem:], tail[:rem])
	}
}
