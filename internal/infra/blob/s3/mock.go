package s3

import (
	"bufio"
	"bytes"
	"context"
	"crypto/md5" // #nosec G501 -- mirrors the S3 ETag format
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const metaHeaderPrefix = "X-Amz-Meta-"

// NewMockForTests returns a Store whose client talks to an in-memory fake
// S3 over a custom RoundTripper. It covers HEAD, GET, PUT, DELETE and
// ListObjectsV2 with path-style addressing.
func NewMockForTests() *Store {
	cfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(defaultRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: newMockTransport()}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
	})
	return &Store{client: client, bucket: "mock-bucket"}
}

type mockObject struct {
	body        []byte
	contentType string
	metadata    map[string]string
	modified    time.Time
}

type mockTransport struct {
	mu      sync.Mutex
	objects map[string]mockObject
}

func newMockTransport() *mockTransport {
	return &mockTransport{objects: make(map[string]mockObject)}
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return m.list(req.URL.Query().Get("prefix")), nil
	}
	switch req.Method {
	case http.MethodHead:
		obj, ok := m.objects[key]
		if !ok {
			return response(http.StatusNotFound, nil, nil), nil
		}
		return response(http.StatusOK, objectHeaders(obj), nil), nil
	case http.MethodGet:
		obj, ok := m.objects[key]
		if !ok {
			body := []byte("<?xml version=\"1.0\"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>")
			return response(http.StatusNotFound, http.Header{"Content-Type": {"application/xml"}}, body), nil
		}
		return response(http.StatusOK, objectHeaders(obj), obj.body), nil
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		if isChunked(req) {
			if body, err = decodeChunked(body); err != nil {
				return response(http.StatusBadRequest, nil, nil), nil
			}
		}
		obj := mockObject{
			body:        body,
			contentType: req.Header.Get("Content-Type"),
			metadata:    make(map[string]string),
			modified:    time.Now().UTC().Truncate(time.Second),
		}
		for name, values := range req.Header {
			if len(name) > len(metaHeaderPrefix) && strings.EqualFold(name[:len(metaHeaderPrefix)], metaHeaderPrefix) && len(values) > 0 {
				obj.metadata[strings.ToLower(name[len(metaHeaderPrefix):])] = values[0]
			}
		}
		m.objects[key] = obj
		return response(http.StatusOK, http.Header{"Etag": {etag(body)}}, nil), nil
	case http.MethodDelete:
		delete(m.objects, key)
		return response(http.StatusNoContent, nil, nil), nil
	}
	return response(http.StatusNotImplemented, nil, nil), nil
}

func (m *mockTransport) list(prefix string) *http.Response {
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
	for _, k := range keys {
		obj := m.objects[k]
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><ETag>%s</ETag><LastModified>%s</LastModified></Contents>",
			k, len(obj.body), etag(obj.body), obj.modified.Format(time.RFC3339))
	}
	b.WriteString("</ListBucketResult>")
	return response(http.StatusOK, http.Header{"Content-Type": {"application/xml"}}, []byte(b.String()))
}

func objectHeaders(obj mockObject) http.Header {
	h := http.Header{
		"Content-Length": {strconv.Itoa(len(obj.body))},
		"Etag":           {etag(obj.body)},
		"Last-Modified":  {obj.modified.Format(http.TimeFormat)},
	}
	if obj.contentType != "" {
		h.Set("Content-Type", obj.contentType)
	}
	for k, v := range obj.metadata {
		h.Set(metaHeaderPrefix+k, v)
	}
	return h
}

func response(status int, header http.Header, body []byte) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode:    status,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

func etag(body []byte) string {
	sum := md5.Sum(body) // #nosec G401 -- mirrors the S3 ETag format
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func isChunked(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") ||
		req.Header.Get("X-Amz-Decoded-Content-Length") != ""
}

// decodeChunked strips aws-chunked framing: "<hex>[;ext]\r\n<data>\r\n"
// repeated until a zero-size chunk, optionally followed by trailers.
func decodeChunked(raw []byte) ([]byte, error) {
	r := bufio.NewReader(bytes.NewReader(raw))
	var out bytes.Buffer
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("chunk header: %w", err)
		}
		sizeField := strings.TrimSpace(line)
		if i := strings.IndexByte(sizeField, ';'); i >= 0 {
			sizeField = sizeField[:i]
		}
		size, err := strconv.ParseInt(sizeField, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("chunk size %q: %w", sizeField, err)
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		if _, err := io.CopyN(&out, r, size); err != nil {
			return nil, fmt.Errorf("chunk body: %w", err)
		}
		if _, err := r.Discard(2); err != nil {
			return nil, fmt.Errorf("chunk terminator: %w", err)
		}
	}
}
