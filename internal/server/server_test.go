package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"hash/crc32"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ironsheep/image-enhancer/internal/config"
	"github.com/ironsheep/image-enhancer/internal/enhance"
	"github.com/ironsheep/image-enhancer/internal/imaging"
	"github.com/ironsheep/image-enhancer/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type echoRestorer struct{}

func (echoRestorer) Restore(_ context.Context, in *imaging.PixelBuffer) (*imaging.PixelBuffer, error) {
	return in.Clone(), nil
}
func (echoRestorer) Name() string { return "echo" }
func (echoRestorer) Close() error { return nil }

type fixedModels struct {
	restorer model.Restorer
	status   model.Status
}

func (f fixedModels) Load() model.Restorer { return f.restorer }
func (f fixedModels) Status() model.Status { return f.status }

func testConfig() *config.Config {
	return &config.Config{
		Host:           "127.0.0.1",
		Port:           "0",
		WindowSize:     256,
		JPEGQuality:    95,
		MaxBodyBytes:   1 << 20,
		RequestTimeout: 30 * time.Second,
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFallbackServer(t *testing.T) *Server {
	t.Helper()
	log := quietLogger()
	models := fixedModels{status: model.Status{Attempted: true, Path: "model_zoo/missing.onnx"}}
	return New(testConfig(), enhance.New(models, enhance.Options{}, log), models, log)
}

func newNeuralServer(t *testing.T) *Server {
	t.Helper()
	log := quietLogger()
	models := fixedModels{
		restorer: echoRestorer{},
		status:   model.Status{Attempted: true, Loaded: true, Name: "echo"},
	}
	return New(testConfig(), enhance.New(models, enhance.Options{}, log), models, log)
}

func redPNG(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func enhanceBody(t *testing.T, image, task string) string {
	t.Helper()
	input := map[string]string{"image": image}
	if task != "" {
		input["task"] = task
	}
	raw, err := json.Marshal(map[string]any{"input": input})
	require.NoError(t, err)
	return string(raw)
}

func TestHealth(t *testing.T) {
	rec := do(t, newFallbackServer(t), http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "AI Image Enhancer Backend", body["message"])
}

func TestEnhance_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"empty input", `{"input": {}}`, "No image provided in the job input."},
		{"empty image", `{"input": {"image": ""}}`, "No image provided in the job input."},
		{"missing input", `{}`, "Missing input data"},
		{"null input", `{"input": null}`, "Missing input data"},
		{"malformed json", `{"input":`, "Invalid JSON body"},
		{"wrong type", `{"input": "abc"}`, "Invalid JSON body"},
		{"no body", ``, "Invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newFallbackServer(t), http.MethodPost, "/enhance", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantErr, decodeBody(t, rec)["error"])
		})
	}
}

func TestEnhance_BodyTooLarge(t *testing.T) {
	log := quietLogger()
	cfg := testConfig()
	cfg.MaxBodyBytes = 64
	s := New(cfg, enhance.New(nil, enhance.Options{}, log), nil, log)

	rec := do(t, s, http.MethodPost, "/enhance", enhanceBody(t, strings.Repeat("A", 256), ""))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Request body too large", decodeBody(t, rec)["error"])
}

func TestEnhance_Success(t *testing.T) {
	tests := []struct {
		name     string
		server   func(*testing.T) *Server
		task     string
		inW, inH int
		wantPath string
		wantW    int
		wantH    int
	}{
		{"fallback default task", newFallbackServer, "", 2, 2, "fallback", 2, 2},
		{"fallback super resolution", newFallbackServer, "Super_Resolution", 8, 4, "fallback", 10, 5},
		{"fallback unknown task", newFallbackServer, "Sepia", 8, 4, "fallback", 8, 4},
		{"neural", newNeuralServer, "Real_Denoising", 8, 4, "neural", 8, 4},
		{"neural default task", newNeuralServer, "", 2, 2, "neural", 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, tt.server(t), http.MethodPost, "/enhance", enhanceBody(t, redPNG(t, tt.inW, tt.inH), tt.task))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantPath, rec.Header().Get(PathHeader))

			var resp EnhanceResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			raw, err := base64.StdEncoding.DecodeString(resp.Image)
			require.NoError(t, err)
			img, err := jpeg.Decode(bytes.NewReader(raw))
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, img.Bounds().Dx())
			assert.Equal(t, tt.wantH, img.Bounds().Dy())
		})
	}
}

func TestEnhance_BadImage(t *testing.T) {
	for _, s := range []*Server{newFallbackServer(t), newNeuralServer(t)} {
		rec := do(t, s, http.MethodPost, "/enhance", enhanceBody(t, "not-an-image", ""))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		msg, ok := decodeBody(t, rec)["error"].(string)
		require.True(t, ok)
		assert.Contains(t, msg, "image processing failed")
	}
}

// headerOnlyPNG is a PNG whose IHDR declares width x height but which
// carries almost no pixel data.
func headerOnlyPNG(t *testing.T, width, height uint32) string {
	t.Helper()
	var buf bytes.Buffer
	buf.Write([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	chunk := func(kind string, data []byte) {
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
		crc := crc32.NewIEEE()
		crc.Write([]byte(kind))
		crc.Write(data)
		buf.WriteString(kind)
		buf.Write(data)
		_ = binary.Write(&buf, binary.BigEndian, crc.Sum32())
	}
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], width)
	binary.BigEndian.PutUint32(ihdr[4:], height)
	ihdr[8], ihdr[9] = 8, 2
	chunk("IHDR", ihdr)
	chunk("IDAT", []byte{0x78, 0x9c, 0x03, 0x00, 0x00, 0x00, 0x00, 0x01})
	chunk("IEND", nil)
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestEnhance_OversizedHeaderRejected(t *testing.T) {
	bomb := headerOnlyPNG(t, 60000, 60000)

	for _, s := range []*Server{newFallbackServer(t), newNeuralServer(t)} {
		rec := do(t, s, http.MethodPost, "/enhance", enhanceBody(t, bomb, ""))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		msg, ok := decodeBody(t, rec)["error"].(string)
		require.True(t, ok)
		assert.Contains(t, msg, "image too large")
	}
}

func TestStatus(t *testing.T) {
	rec := do(t, newNeuralServer(t), http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status  string            `json:"status"`
		Path    string            `json:"path"`
		Model   model.Status      `json:"model"`
		Tasks   []string          `json:"tasks"`
		Weights map[string]string `json:"weights"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "operational", resp.Status)
	assert.Equal(t, "neural", resp.Path)
	assert.True(t, resp.Model.Loaded)
	assert.Equal(t, "echo", resp.Model.Name)
	assert.Equal(t, []string{"Real_Denoising", "Color_Denoising", "Super_Resolution", "JPEG_Artifact_Reduction"}, resp.Tasks)
	assert.Equal(t, map[string]string{
		"Real_Denoising":          model.WeightsPSNR,
		"Color_Denoising":         model.WeightsPSNR,
		"Super_Resolution":        model.WeightsGAN,
		"JPEG_Artifact_Reduction": model.WeightsPSNR,
	}, resp.Weights)

	rec = do(t, newFallbackServer(t), http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fallback", decodeBody(t, rec)["path"])
}

func TestStatus_NoLoader(t *testing.T) {
	log := quietLogger()
	s := New(testConfig(), enhance.New(nil, enhance.Options{}, log), nil, log)

	rec := do(t, s, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "fallback", body["path"])
	assert.NotContains(t, body, "model")
}

func TestNotFound(t *testing.T) {
	rec := do(t, newFallbackServer(t), http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decodeBody(t, rec)["error"])
}

func TestRunAndShutdown(t *testing.T) {
	s := newFallbackServer(t)

	done := make(chan error, 1)
	go func() { done <- s.Run() }()

	// Shutdown may race the listener start; both orders must end Run cleanly.
	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}
