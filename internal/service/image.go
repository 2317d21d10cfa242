package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/cuistot-app/backend/config"
)

// FallbackImageURL is served when image generation or upload fails. Callers
// substitute it rather than failing the surrounding operation.
const FallbackImageURL = "https://images.unsplash.com/photo-1495521821757-a1efb6729352?auto=format&fit=crop&q=80&w=800"

// imageRequest is the text-to-image request payload
type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// ImageService generates an illustrative image for a recipe and hosts it on
// S3. The inference endpoint returns raw image bytes.
type ImageService struct {
	apiURL   string
	apiKey   string
	model    string
	s3Config *config.S3Config
	client   *http.Client
}

// NewImageService creates a new ImageService instance
func NewImageService(cfg *config.Config, s3Config *config.S3Config) *ImageService {
	return &ImageService{
		apiURL:   cfg.ImageAPIURL,
		apiKey:   cfg.InferenceAPIKey,
		model:    cfg.ImageModel,
		s3Config: s3Config,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// GenerateRecipeImage generates an image for the recipe title and returns a
// hosted URL. Errors are returned so the caller can fall back to
// FallbackImageURL.
func (s *ImageService) GenerateRecipeImage(ctx context.Context, title string) (string, error) {
	imageData, err := s.generateImage(ctx, title)
	if err != nil {
		return "", fmt.Errorf("failed to generate recipe image: %w", err)
	}

	fileName := fmt.Sprintf("recipe-images/%s.png", uuid.New().String())
	url, err := s.uploadToS3(ctx, imageData, fileName)
	if err != nil {
		return "", fmt.Errorf("failed to upload recipe image: %w", err)
	}
	return url, nil
}

// generateImage performs the text-to-image call
func (s *ImageService) generateImage(ctx context.Context, prompt string) ([]byte, error) {
	reqBody := imageRequest{
		Model:  s.model,
		Prompt: prompt,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("[ImageService] API request failed with status %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("empty image data in API response")
	}

	return body, nil
}

// uploadToS3 uploads image bytes and returns the public URL
func (s *ImageService) uploadToS3(ctx context.Context, imageData []byte, fileName string) (string, error) {
	_, err := s.s3Config.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Config.BucketName),
		Key:         aws.String(fileName),
		Body:        bytes.NewReader(imageData),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	publicURL := fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.s3Config.BucketName, fileName)
	log.Printf("[ImageService] Uploaded image to %s", publicURL)

	return publicURL, nil
}
