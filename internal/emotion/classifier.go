package emotion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// FrameFileName is the form file name sent with each frame.
const FrameFileName = "webcam-frame.jpg"

// HTTPClassifier calls an emotion detection service that accepts a
// multipart "file" upload at /predict.
type HTTPClassifier struct {
	baseURL string
	c       *http.Client
}

// NewHTTPClassifier creates a classifier for the service at baseURL. A nil
// client uses http.DefaultClient; per-call deadlines come from the context.
func NewHTTPClassifier(baseURL string, c *http.Client) *HTTPClassifier {
	if c == nil {
		c = http.DefaultClient
	}
	return &HTTPClassifier{baseURL: strings.TrimRight(baseURL, "/"), c: c}
}

type predictResp struct {
	Emotion struct {
		Result  string `json:"result"`
		Results []struct {
			Emotion    string  `json:"emotion"`
			Confidence float64 `json:"confidence"`
		} `json:"results"`
	} `json:"emotion"`
	Error string `json:"error"`
}

// Classify uploads frame and returns the label of the first detected face.
func (h *HTTPClassifier) Classify(ctx context.Context, frame []byte) (Label, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", FrameFileName)
	if err != nil {
		return "", err
	}
	if _, err = fw.Write(frame); err != nil {
		return "", err
	}
	if err = w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/predict", &b)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := h.c.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("emotion %s: %s", resp.Status, string(body))
	}

	var out predictResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("emotion decode: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("emotion: %s", out.Error)
	}
	if len(out.Emotion.Results) > 0 {
		return ParseLabel(out.Emotion.Results[0].Emotion)
	}
	if out.Emotion.Result != "" {
		return ParseLabel(out.Emotion.Result)
	}
	return NoFace, nil
}
