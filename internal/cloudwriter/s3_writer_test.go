package cloudwriter

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
)

type putRequest struct {
	method      string
	path        string
	contentType string
	body        string
}

func newTestS3(t *testing.T) (*S3WriterFactory, func() []putRequest) {
	t.Helper()

	var (
		mu   sync.Mutex
		puts []putRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		puts = append(puts, putRequest{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
		Credentials:  aws.AnonymousCredentials{},
		Retryer:      aws.NopRetryer{},
	})

	return NewS3WriterFactoryWithClient(client), func() []putRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]putRequest(nil), puts...)
	}
}

func TestS3WriterPutsObjectOnClose(t *testing.T) {
	factory, requests := newTestS3(t)

	w, err := factory.NewWriter(context.Background(), "plots", "vista/latest/red_lines.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("RSU,Bound\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("1,WB\n")); err != nil {
		t.Fatal(err)
	}
	if got := len(requests()); got != 0 {
		t.Fatalf("uploaded %d objects before Close", got)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	puts := requests()
	if len(puts) != 1 {
		t.Fatalf("got %d requests, want 1", len(puts))
	}
	p := puts[0]
	if p.method != http.MethodPut || p.path != "/plots/vista/latest/red_lines.csv" {
		t.Errorf("request %s %s", p.method, p.path)
	}
	if p.contentType != csvContentType {
		t.Errorf("content type %q", p.contentType)
	}
	if p.body != "RSU,Bound\n1,WB\n" {
		t.Errorf("body %q", p.body)
	}
}

func TestS3WriterHonorsContext(t *testing.T) {
	factory, requests := newTestS3(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w, err := factory.NewWriter(ctx, "plots", "dots.csv")
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if got := len(requests()); got != 0 {
		t.Errorf("sent %d requests with a cancelled context", got)
	}
}

func TestMirrorUploadToS3(t *testing.T) {
	factory, requests := newTestS3(t)
	m := NewMirror(factory, "plots", "vista")

	if err := m.Upload(context.Background(), &models.Snapshot{}); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	puts := requests()
	if len(puts) != len(models.Categories) {
		t.Fatalf("got %d uploads", len(puts))
	}
	for i, c := range models.Categories {
		if want := "/plots/vista/" + c.FileName(); puts[i].path != want {
			t.Errorf("upload %d path %s, want %s", i, puts[i].path, want)
		}
	}
}
