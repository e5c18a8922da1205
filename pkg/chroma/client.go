package chroma

import (
	"context"
	"fmt"
	"os"

	"github.com/jalemieux/hermes/pkg/config"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
	log "github.com/sirupsen/logrus"
)

const collectionName = "newsletter_emails"

// maxDocumentLen keeps documents under the embedding model's input limit
const maxDocumentLen = 10000

// Document is one rendered newsletter email as stored in the vector index
type Document struct {
	EmailID        string
	UserID         string
	NewsletterName string
	Subject        string
	Text           string
}

// Hit is a search result; smaller distance is closer
type Hit struct {
	EmailID  string
	Distance float64
}

type ChromaClient struct {
	client     chroma.Client
	collection chroma.Collection
}

// NewChromaClient connects to Chroma Cloud when an API key is configured,
// otherwise to the self-hosted server at CHROMA_URL
func NewChromaClient(cfg *config.Config) (*ChromaClient, error) {
	if cfg.ChromaAPIKey == "" && cfg.ChromaURL == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY or CHROMA_URL is required")
	}
	if cfg.GeminiApiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for embeddings")
	}

	// The embedding function reads its key from the environment
	if os.Getenv("GEMINI_API_KEY") == "" {
		os.Setenv("GEMINI_API_KEY", cfg.GeminiApiKey)
	}
	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	var client chroma.Client
	switch {
	case cfg.ChromaAPIKey == "":
		client, err = chroma.NewHTTPClient(chroma.WithBaseURL(cfg.ChromaURL))
	case cfg.ChromaDatabase != "" && cfg.ChromaTenant != "":
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant),
		)
	case cfg.ChromaTenant != "":
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithTenant(cfg.ChromaTenant),
		)
	default:
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	collection, err := client.GetOrCreateCollection(
		context.Background(),
		collectionName,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	log.Infof("[Chroma] Using collection %s", collectionName)
	return &ChromaClient{client: client, collection: collection}, nil
}

// Index upserts the document keyed by email id
func (c *ChromaClient) Index(ctx context.Context, doc Document) error {
	text := doc.Text
	if len(text) > maxDocumentLen {
		text = text[:maxDocumentLen]
	}

	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"user_id":         doc.UserID,
		"email_id":        doc.EmailID,
		"newsletter_name": doc.NewsletterName,
		"subject":         doc.Subject,
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = c.collection.Upsert(
		ctx,
		chroma.WithIDs(chroma.DocumentID(doc.EmailID)),
		chroma.WithMetadatas(metadata),
		chroma.WithTexts(text),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert email %s: %w", doc.EmailID, err)
	}
	return nil
}

// Search returns the user's closest emails to the query
func (c *ChromaClient) Search(ctx context.Context, userID, query string, limit int) ([]Hit, error) {
	results, err := c.collection.Query(
		ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(limit),
		chroma.WithWhereQuery(chroma.EqString("user_id", userID)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	if results == nil || results.CountGroups() == 0 {
		return []Hit{}, nil
	}

	idGroups := results.GetIDGroups()
	if len(idGroups) == 0 {
		return []Hit{}, nil
	}
	distanceGroups := results.GetDistancesGroups()

	hits := make([]Hit, 0, len(idGroups[0]))
	for i, id := range idGroups[0] {
		hit := Hit{EmailID: string(id)}
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			hit.Distance = float64(distanceGroups[0][i])
		}
		hits = append(hits, hit)
	}
	log.Debugf("[Chroma] %d hits for user %s", len(hits), userID)
	return hits, nil
}
