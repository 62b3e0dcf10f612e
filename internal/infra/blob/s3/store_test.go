package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"parishregistry/internal/blob/core"
)

// fakeS3 serves the subset of the S3 REST API the store uses.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

type fakeObject struct {
	body        []byte
	contentType string
	meta        map[string]string
}

var lastModified = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	respond := func(status int, body string, header http.Header) *http.Response {
		if header == nil {
			header = http.Header{}
		}
		return &http.Response{StatusCode: status, Header: header, Body: io.NopCloser(strings.NewReader(body)), Request: req}
	}
	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>%s</LastModified></Contents>", k, len(f.objects[k].body), lastModified.Format(time.RFC3339))
		}
		b.WriteString("</ListBucketResult>")
		return respond(200, b.String(), http.Header{"Content-Type": {"application/xml"}}), nil
	}
	headers := func(obj fakeObject) http.Header {
		h := http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"Etag":           {`"etag-` + key + `"`},
			"Last-Modified":  {lastModified.Format(http.TimeFormat)},
		}
		for k, v := range obj.meta {
			h.Set("X-Amz-Meta-"+k, v)
		}
		return h
	}
	switch req.Method {
	case http.MethodHead:
		obj, ok := f.objects[key]
		if !ok {
			return respond(404, "", nil), nil
		}
		return respond(200, "", headers(obj)), nil
	case http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			return respond(404, `<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`, http.Header{"Content-Type": {"application/xml"}}), nil
		}
		resp := respond(200, "", headers(obj))
		resp.Body = io.NopCloser(bytes.NewReader(obj.body))
		return resp, nil
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		meta := map[string]string{}
		for name, values := range req.Header {
			if strings.HasPrefix(strings.ToLower(name), "x-amz-meta-") {
				meta[strings.ToLower(strings.TrimPrefix(strings.ToLower(name), "x-amz-meta-"))] = values[0]
			}
		}
		f.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type"), meta: meta}
		return respond(200, "", http.Header{"Etag": {`"etag-` + key + `"`}}), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return respond(204, "", nil), nil
	}
	return respond(405, "", nil), nil
}

func newFakeStore(t *testing.T) (*Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string]fakeObject{}}
	client := awss3.New(awss3.Options{
		Region:                     "us-east-1",
		Credentials:                credentials.NewStaticCredentialsProvider("AKIA", "SECRET", ""),
		HTTPClient:                 &http.Client{Transport: fake},
		BaseEndpoint:               aws.String("https://mock.s3.local"),
		UsePathStyle:               true,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})
	return NewWithClient(client, "parish-archives"), fake
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, fake := newFakeStore(t)
	require.Equal(t, core.DriverS3, store.Driver())

	info, err := store.Put(ctx, "archives/1990.csv", strings.NewReader("libro,folio,numero\n1,2,3\n"), core.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"parish": "p1"},
	})
	require.NoError(t, err)
	require.Equal(t, "archives/1990.csv", info.Key)
	require.Equal(t, int64(25), info.Size)
	require.Equal(t, "text/csv", info.ContentType)
	require.Equal(t, "p1", fake.objects["archives/1990.csv"].meta["parish"])

	_, err = store.Put(ctx, "archives/1990.csv", strings.NewReader("again"), core.PutOptions{})
	require.ErrorIs(t, err, core.ErrExists)

	got, rc, err := store.Get(ctx, "archives/1990.csv")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "libro,folio,numero\n1,2,3\n", string(body))
	require.Equal(t, "etag-archives/1990.csv", got.ETag)

	_, err = store.Put(ctx, "reports/r1.json", strings.NewReader("{}"), core.PutOptions{})
	require.NoError(t, err)
	listed, err := store.List(ctx, "archives/")
	require.NoError(t, err)
	require.Len(t, listed, 1)

	existed, err := store.Delete(ctx, "archives/1990.csv")
	require.NoError(t, err)
	require.True(t, existed)
	existed, err = store.Delete(ctx, "archives/1990.csv")
	require.NoError(t, err)
	require.False(t, existed)
}

func TestStoreMissingKeysMapToNotFound(t *testing.T) {
	ctx := context.Background()
	store, _ := newFakeStore(t)
	_, err := store.Head(ctx, "missing")
	require.True(t, errors.Is(err, core.ErrNotFound), "head: %v", err)
	_, _, err = store.Get(ctx, "missing")
	require.True(t, errors.Is(err, core.ErrNotFound), "get: %v", err)
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.ErrorContains(t, err, "bucket required")
}

func TestNewWithStaticCredentials(t *testing.T) {
	store, err := New(context.Background(), Config{
		Bucket:          "parish-archives",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
		PathStyle:       true,
	})
	require.NoError(t, err)
	creds, err := store.client.Options().Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	require.Equal(t, "minio", creds.AccessKeyID)
	require.True(t, store.client.Options().UsePathStyle)
}
