package pdf

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// samplePDFContent simulates minimal PDF-like bytes for testing.
var samplePDFContent = []byte("%PDF-1.4 sample content for testing")

// testConfig returns a config that permits requests to httptest loopback servers.
func testConfig() DownloaderConfig {
	return DownloaderConfig{AllowPrivateNetworks: true}
}

// writeContent is a test helper that writes content to the response writer.
func writeContent(w http.ResponseWriter, content []byte) {
	_, _ = w.Write(content)
}

func TestNewDownloader_Defaults(t *testing.T) {
	t.Run("applies default values", func(t *testing.T) {
		d := NewDownloader(DownloaderConfig{})

		require.NotNil(t, d)
		assert.Equal(t, int64(30*1024*1024), d.maxSize)
		assert.Equal(t, "Mozilla/5.0 (compatible; Helixir-SystematicReview/1.0; +https://helixir.io/bot)", d.userAgent)
		assert.Equal(t, 60*time.Second, d.client.Timeout)
		assert.False(t, d.allowPrivateNetworks)
	})

	t.Run("uses custom config values", func(t *testing.T) {
		cfg := DownloaderConfig{
			Timeout:   30 * time.Second,
			MaxSize:   50 * 1024 * 1024,
			UserAgent: "CustomAgent/2.0",
		}

		d := NewDownloader(cfg)

		require.NotNil(t, d)
		assert.Equal(t, int64(50*1024*1024), d.maxSize)
		assert.Equal(t, "CustomAgent/2.0", d.userAgent)
		assert.Equal(t, 30*time.Second, d.client.Timeout)
	})
}

func TestDownload_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		writeContent(w, samplePDFContent)
	}))
	defer server.Close()

	d := NewDownloader(testConfig())

	result, err := d.Download(context.Background(), server.URL)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, samplePDFContent, result.Content)
	assert.Equal(t, int64(len(samplePDFContent)), result.SizeBytes)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Len(t, result.ContentHash, 64) // SHA-256 produces 64 hex chars
}

func TestDownload_HashCorrectness(t *testing.T) {
	testContent := []byte("test PDF content for hash verification")
	expectedHash := sha256.Sum256(testContent)
	expectedHashHex := hex.EncodeToString(expectedHash[:])

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		writeContent(w, testContent)
	}))
	defer server.Close()

	d := NewDownloader(testConfig())

	result, err := d.Download(context.Background(), server.URL)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, expectedHashHex, result.ContentHash)
}

func TestDownload_NonPDFContentType(t *testing.T) {
	testCases := []struct {
		name        string
		contentType string
	}{
		{"text/html", "text/html"},
		{"text/plain", "text/plain"},
		{"application/json", "application/json"},
		{"empty", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tc.contentType != "" {
					w.Header().Set("Content-Type", tc.contentType)
				}
				w.WriteHeader(http.StatusOK)
				writeContent(w, []byte("<html>Not a PDF</html>"))
			}))
			defer server.Close()

			d := NewDownloader(testConfig())

			result, err := d.Download(context.Background(), server.URL)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, ErrNotPDF)
			assert.Contains(t, err.Error(), "Content-Type")
		})
	}
}

func TestDownload_ContentTypeWithCharset(t *testing.T) {
	testCases := []struct {
		name        string
		contentType string
	}{
		{"with charset utf-8", "application/pdf; charset=utf-8"},
		{"with boundary", "application/pdf; boundary=something"},
		{"uppercase", "Application/PDF"},
		{"mixed case", "Application/Pdf; Charset=UTF-8"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				w.WriteHeader(http.StatusOK)
				writeContent(w, samplePDFContent)
			}))
			defer server.Close()

			d := NewDownloader(testConfig())

			result, err := d.Download(context.Background(), server.URL)
			require.NoError(t, err)
			require.NotNil(t, result)

			assert.Equal(t, samplePDFContent, result.Content)
			assert.Equal(t, tc.contentType, result.ContentType)
		})
	}
}

func TestDownload_TooLarge(t *testing.T) {
	largeContent := make([]byte, 1024)
	for i := range largeContent {
		largeContent[i] = byte(i % 256)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		writeContent(w, largeContent)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MaxSize = 512
	d := NewDownloader(cfg)

	result, err := d.Download(context.Background(), server.URL)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Contains(t, err.Error(), "512")
}

func TestDownload_ExactlyMaxSize(t *testing.T) {
	content := make([]byte, 512)
	for i := range content {
		content[i] = byte(i % 256)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		writeContent(w, content)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MaxSize = 512
	d := NewDownloader(cfg)

	result, err := d.Download(context.Background(), server.URL)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, int64(512), result.SizeBytes)
}

func TestDownload_HTTPErrors(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
	}{
		{"404 Not Found", http.StatusNotFound},
		{"403 Forbidden", http.StatusForbidden},
		{"429 Too Many Requests", http.StatusTooManyRequests},
		{"500 Internal Server Error", http.StatusInternalServerError},
		{"503 Service Unavailable", http.StatusServiceUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
			}))
			defer server.Close()

			d := NewDownloader(testConfig())

			result, err := d.Download(context.Background(), server.URL)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, ErrDownloadFailed)
		})
	}
}

func TestDownload_Redirect(t *testing.T) {
	finalServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		writeContent(w, samplePDFContent)
	}))
	defer finalServer.Close()

	redirectServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, finalServer.URL, http.StatusMovedPermanently)
	}))
	defer redirectServer.Close()

	d := NewDownloader(testConfig())

	result, err := d.Download(context.Background(), redirectServer.URL)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, samplePDFContent, result.Content)
	assert.Equal(t, "application/pdf", result.ContentType)
}

func TestDownload_SSRFBlocked(t *testing.T) {
	// A loopback httptest server must be rejected when private networks
	// are not explicitly allowed.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		writeContent(w, samplePDFContent)
	}))
	defer server.Close()

	d := NewDownloader(DownloaderConfig{})

	result, err := d.Download(context.Background(), server.URL)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrSSRF)
}

func TestDownload_SSRFRedirectBlocked(t *testing.T) {
	// An allowed origin redirecting to a private address must be rejected.
	finalServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		writeContent(w, samplePDFContent)
	}))
	defer finalServer.Close()

	redirectServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://192.168.1.1/internal.pdf", http.StatusFound)
	}))
	defer redirectServer.Close()

	d := NewDownloader(testConfig())
	// Re-enable redirect validation while allowing the initial loopback hop.
	d.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return validateURLNotPrivate(req.URL.String())
	}

	result, err := d.Download(context.Background(), redirectServer.URL)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrSSRF)
}

func TestDownload_DisallowedScheme(t *testing.T) {
	d := NewDownloader(DownloaderConfig{})

	result, err := d.Download(context.Background(), "file:///etc/passwd")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrSSRF)
}

func TestDownload_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		writeContent(w, samplePDFContent)
	}))
	defer server.Close()

	d := NewDownloader(testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	result, err := d.Download(ctx, server.URL)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrDownloadFailed)
}

func TestDownload_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		writeContent(w, samplePDFContent)
	}))
	defer server.Close()

	d := NewDownloader(testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := d.Download(ctx, server.URL)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrDownloadFailed)
}

func TestDownload_ConnectionRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 1 * time.Second
	d := NewDownloader(cfg)

	// Use a port that is unlikely to be in use.
	result, err := d.Download(context.Background(), "http://127.0.0.1:59999/pdf")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrDownloadFailed)
}

func TestDownload_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewDownloader(testConfig())

	result, err := d.Download(context.Background(), server.URL)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Empty(t, result.Content)
	assert.Equal(t, int64(0), result.SizeBytes)
	// Empty content still has a hash
	assert.NotEmpty(t, result.ContentHash)
}

func TestIsPrivateIP(t *testing.T) {
	testCases := []struct {
		ip      string
		private bool
	}{
		{"10.0.0.1", true},
		{"172.16.5.4", true},
		{"192.168.1.1", true},
		{"169.254.0.1", true},
		{"127.0.0.1", true},
		{"::1", true},
		{"fc00::1", true},
		{"fe80::1", true},
		{"8.8.8.8", false},
		{"151.101.1.140", false},
		{"2606:4700::6810:85e5", false},
	}

	for _, tc := range testCases {
		t.Run(tc.ip, func(t *testing.T) {
			ip := net.ParseIP(tc.ip)
			require.NotNil(t, ip)
			assert.Equal(t, tc.private, isPrivateIP(ip))
		})
	}
}
