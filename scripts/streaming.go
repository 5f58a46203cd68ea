package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/genai"

	"github.com/kopisiew/go-makan-suggestions/internal/api/recommend"
	"github.com/kopisiew/go-makan-suggestions/internal/types"
)

// Prompt probe: assembles the recommendation prompt over a canned history
// and streams the model reply, so prompt wording can be iterated on without
// running the server. Usage:
//
//	go run scripts/streaming.go -query "supper after 10pm in Geylang"

var (
	model = flag.String("model", "gemini-2.0-flash", "the model name, e.g. gemini-2.0-flash")
	query = flag.String("query", "chill dinner in Tiong Bahru", "the free-text query to probe")
)

func cannedContext(q string) recommend.PromptContext {
	area := "Tiong Bahru"
	rating := 4.4
	ownRating := 5
	return recommend.PromptContext{
		Query:   q,
		IsGroup: true,
		Now:     time.Now().In(time.FixedZone("SGT", 8*3600)),
		Profile: &types.TasteProfile{
			CuisineRatings: []types.CuisineRating{
				{Cuisine: "zi char", AvgRating: 4.5, SampleCount: 4},
				{Cuisine: "japanese", AvgRating: 4.0, SampleCount: 2},
			},
			TopAreas: []types.AreaStat{
				{Area: "Tiong Bahru", VisitCount: 3},
				{Area: "Bukit Merah", VisitCount: 2},
			},
			Occasions: []types.OccasionStat{{Occasion: types.OccasionCasual, Count: 4}},
			OverdueWishlist: []types.OverdueEntry{
				{PlaceID: "probe-1", Name: "Keng Eng Kee Seafood", Area: &area, DaysSaved: 120},
			},
			HasHistory: true,
		},
		Candidates: []types.LabeledCandidate{
			{
				Candidate: types.Candidate{
					PlaceID: "probe-1", Name: "Keng Eng Kee Seafood", Area: area,
					Source: types.CandidateSourceWishlist,
				},
				Label: types.LabelOnWishlist,
			},
			{
				Candidate: types.Candidate{
					PlaceID: "probe-2", Name: "Bincho", Area: area,
					Source: types.CandidateSourceWishlist,
				},
				Label:     types.LabelAlreadyVisited,
				OwnRating: &ownRating,
			},
			{
				Candidate: types.Candidate{
					PlaceID: "probe-3", Name: "Por Kee Eating House", Area: area,
					Address: "69-79 Seng Poh Ln", Rating: &rating,
					Source: types.CandidateSourceExternal,
				},
				Label: types.LabelExternalNew,
			},
		},
		MaxRecommendations: 5,
	}
}

func streamProbe(ctx context.Context) {
	apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY")
	if apiKey == "" {
		fmt.Println("GOOGLE_GEMINI_API_KEY environment variable is not set")
		return
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		fmt.Println("Failed to create client:", err)
		return
	}

	prompt := recommend.BuildPrompt(cannedContext(*query))
	fmt.Println("--- prompt ---")
	fmt.Println(prompt)
	fmt.Println("--- reply ---")

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.6),
		MaxOutputTokens:  1024,
		ResponseMIMEType: "application/json",
	}

	chat, err := client.Chats.Create(ctx, *model, config, nil)
	if err != nil {
		log.Fatal(err)
	}
	part := genai.Part{Text: prompt}
	for result, err := range chat.SendMessageStream(ctx, part) {
		if err != nil {
			log.Fatal(err)
		}
		fmt.Print(result.Text())
	}
	fmt.Println()
}

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}
	ctx := context.Background()
	flag.Parse()
	streamProbe(ctx)
}
