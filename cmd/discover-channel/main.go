// discover-channel resolves a channel and writes its video metadata as
// JSONL for later transcript fetching.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/knowtube/knowtube/pkg/knowtube/discovery"
)

func main() {
	var (
		channel   = flag.String("channel", "", "Channel id, URL, or @handle (required)")
		apiKeyEnv = flag.String("api-key-env", "YOUTUBE_API_KEY", "Environment variable holding the API key")
		maxVideos = flag.Int("max", 0, "Maximum videos to list (0 = all)")
		outPath   = flag.String("out", "videos.jsonl", "Output JSONL file")
		qps       = flag.Float64("qps", 5, "API request rate limit")
	)
	flag.Parse()

	if *channel == "" {
		log.Fatal("--channel required")
	}
	apiKey := os.Getenv(*apiKeyEnv)
	if apiKey == "" {
		log.Fatalf("%s not set", *apiKeyEnv)
	}

	client := &discovery.Client{
		APIKey:  apiKey,
		Limiter: rate.NewLimiter(rate.Limit(*qps), 1),
	}

	ctx := context.Background()
	ch, err := client.ResolveChannel(ctx, *channel)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("channel %s (%s), %d videos", ch.Title, ch.ID, ch.VideoCount)

	videos, err := client.ListVideos(ctx, ch, *maxVideos)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("listed %d videos", len(videos))

	if dir := filepath.Dir(*outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal(err)
		}
	}
	out, err := os.Create(*outPath)
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	for _, v := range videos {
		if err := enc.Encode(v); err != nil {
			log.Fatal(err)
		}
	}
	log.Printf("wrote %s", *outPath)
}
