package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ScriptStore keeps the spoken scripts the voice pipeline reads
type ScriptStore struct {
	client *s3.Client
	bucket string
}

func NewScriptStore(ctx context.Context, bucket, region string) (*ScriptStore, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &ScriptStore{client: s3.NewFromConfig(awsCfg), bucket: bucket}, nil
}

func ScriptKey(userID, summaryID string) string {
	return fmt.Sprintf("scripts/%s/%s.txt", userID, summaryID)
}

// PutScript uploads the script and returns its s3:// location
func (s *ScriptStore) PutScript(ctx context.Context, userID, summaryID, script string) (string, error) {
	key := ScriptKey(userID, summaryID)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(script),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
