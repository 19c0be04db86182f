// fetch-transcripts downloads caption transcripts for the videos listed in
// a discovery JSONL file, one .txt file per video.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/knowtube/knowtube/pkg/knowtube/discovery"
	"github.com/knowtube/knowtube/pkg/knowtube/fetch"
)

func main() {
	var (
		inPath  = flag.String("in", "videos.jsonl", "Discovery JSONL file")
		outDir  = flag.String("out", "transcripts", "Output directory")
		workers = flag.Int("workers", 4, "Parallel downloads")
		retries = flag.Int("retries", 2, "Retries per video")
	)
	flag.Parse()

	ids, err := readVideoIDs(*inPath)
	if err != nil {
		log.Fatal(err)
	}
	if len(ids) == 0 {
		log.Fatal("no videos in input")
	}
	log.Printf("fetching transcripts for %d videos", len(ids))

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal(err)
	}

	pool := &fetch.Pool{
		Client:  &fetch.Client{},
		Workers: *workers,
		Retries: *retries,
	}
	results := pool.FetchAll(context.Background(), ids)

	fetched, missing := 0, 0
	for _, res := range results {
		if res.Err != nil {
			missing++
			log.Printf("%s: %v", res.VideoID, res.Err)
			continue
		}
		path := filepath.Join(*outDir, res.VideoID+".txt")
		if err := os.WriteFile(path, []byte(res.Transcript), 0o644); err != nil {
			log.Fatal(err)
		}
		fetched++
	}
	log.Printf("done: %d fetched, %d missing", fetched, missing)
}

func readVideoIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var v discovery.VideoMetadata
		if err := json.Unmarshal(line, &v); err != nil {
			return nil, err
		}
		if v.VideoID != "" {
			ids = append(ids, v.VideoID)
		}
	}
	return ids, scanner.Err()
}
