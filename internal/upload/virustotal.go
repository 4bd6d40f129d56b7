package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// VirusTotalScanner submits files to the VirusTotal v3 API and waits for the
// analysis to complete.
type VirusTotalScanner struct {
	APIKey       string
	HTTPClient   *http.Client
	Endpoint     string
	PollInterval time.Duration
	MaxPolls     int
}

type vtUploadResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type vtAnalysisResponse struct {
	Data struct {
		Attributes struct {
			Status string `json:"status"`
			Stats  struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
			} `json:"stats"`
		} `json:"attributes"`
	} `json:"data"`
}

func NewVirusTotalScanner(apiKey string) *VirusTotalScanner {
	return &VirusTotalScanner{
		APIKey:       apiKey,
		Endpoint:     "https://www.virustotal.com/api/v3",
		PollInterval: 3 * time.Second,
		MaxPolls:     20,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (v *VirusTotalScanner) Scan(ctx context.Context, data []byte, name string) error {
	if strings.TrimSpace(v.APIKey) == "" {
		return fmt.Errorf("virustotal: missing api key")
	}

	analysisID, err := v.submit(ctx, data, name)
	if err != nil {
		return err
	}

	for i := 0; i < v.MaxPolls; i++ {
		out, err := v.analysis(ctx, analysisID)
		if err != nil {
			return err
		}
		attrs := out.Data.Attributes
		if attrs.Status == "completed" {
			if attrs.Stats.Malicious > 0 || attrs.Stats.Suspicious > 0 {
				return fmt.Errorf("%w: %s (malicious=%d suspicious=%d)", ErrFileRejected, name, attrs.Stats.Malicious, attrs.Stats.Suspicious)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(v.PollInterval):
		}
	}
	return fmt.Errorf("virustotal: analysis %s did not complete", analysisID)
}

func (v *VirusTotalScanner) submit(ctx context.Context, data []byte, name string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint+"/files", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out vtUploadResponse
	if err := v.do(req, &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("virustotal: upload returned no analysis id")
	}
	return out.Data.ID, nil
}

func (v *VirusTotalScanner) analysis(ctx context.Context, id string) (*vtAnalysisResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.Endpoint+"/analyses/"+id, nil)
	if err != nil {
		return nil, err
	}
	var out vtAnalysisResponse
	if err := v.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (v *VirusTotalScanner) do(req *http.Request, out interface{}) error {
	req.Header.Set("x-apikey", v.APIKey)
	req.Header.Set("Accept", "application/json")

	client := v.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("virustotal %s http %d", req.URL.Path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
