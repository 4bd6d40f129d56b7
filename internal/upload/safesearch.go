package upload

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

type SafeSearchResult struct {
	Adult    string
	Violence string
	Racy     string
	Spoof    string
	Medical  string
}

func isUnsafeLikelyOrHigher(l string) bool {
	return l == "LIKELY" || l == "VERY_LIKELY"
}

func (r *SafeSearchResult) IsUnsafe() bool {
	return isUnsafeLikelyOrHigher(r.Adult) || isUnsafeLikelyOrHigher(r.Violence) || isUnsafeLikelyOrHigher(r.Racy)
}

// SafeSearchScanner rejects images Vision SafeSearch rates likely adult,
// violent or racy. The image bytes are sent inline.
type SafeSearchScanner struct {
	svc *vision.Service
}

// NewSafeSearchScanner uses Application Default Credentials unless opts say
// otherwise.
func NewSafeSearchScanner(ctx context.Context, opts ...option.ClientOption) (*SafeSearchScanner, error) {
	opts = append([]option.ClientOption{option.WithScopes(vision.CloudPlatformScope)}, opts...)
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("safesearch: vision client: %w", err)
	}
	return &SafeSearchScanner{svc: svc}, nil
}

func (s *SafeSearchScanner) Detect(ctx context.Context, data []byte) (*SafeSearchResult, error) {
	req := &vision.AnnotateImageRequest{
		Image: &vision.Image{
			Content: base64.StdEncoding.EncodeToString(data),
		},
		Features: []*vision.Feature{
			{Type: "SAFE_SEARCH_DETECTION"},
		},
	}

	call := s.svc.Images.Annotate(&vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{req},
	})
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Responses) == 0 {
		return &SafeSearchResult{}, nil
	}
	r := resp.Responses[0]
	if r.Error != nil && r.Error.Message != "" {
		return nil, fmt.Errorf("safesearch: %s", r.Error.Message)
	}
	ss := r.SafeSearchAnnotation
	if ss == nil {
		return &SafeSearchResult{}, nil
	}

	return &SafeSearchResult{
		Adult:    ss.Adult,
		Violence: ss.Violence,
		Racy:     ss.Racy,
		Spoof:    ss.Spoof,
		Medical:  ss.Medical,
	}, nil
}

func (s *SafeSearchScanner) Scan(ctx context.Context, data []byte, name string) error {
	ss, err := s.Detect(ctx, data)
	if err != nil {
		return err
	}
	if ss.IsUnsafe() {
		return fmt.Errorf("%w: %s adult=%s violence=%s racy=%s", ErrFileRejected, name, ss.Adult, ss.Violence, ss.Racy)
	}
	return nil
}
