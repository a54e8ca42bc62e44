package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/shineum/mail-digest/internal/email"
)

// mockObjectClient implements storage.ObjectAPI over an in-memory object map
// keyed by "bucket/key".
type mockObjectClient struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []putRecord
}

type putRecord struct {
	bucket      string
	key         string
	body        []byte
	contentType string
}

func newMockObjectClient() *mockObjectClient {
	return &mockObjectClient{objects: make(map[string][]byte)}
}

func (m *mockObjectClient) addObject(bucket, key string, body []byte) {
	m.objects[bucket+"/"+key] = body
}

func (m *mockObjectClient) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, fmt.Errorf("no such key: %s", aws.ToString(params.Key))
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (m *mockObjectClient) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts = append(m.puts, putRecord{
		bucket:      aws.ToString(params.Bucket),
		key:         aws.ToString(params.Key),
		body:        body,
		contentType: aws.ToString(params.ContentType),
	})
	return &s3.PutObjectOutput{}, nil
}

// mockProvider implements provider.Provider and records sent messages.
type mockProvider struct {
	sent    []*email.Email
	sendErr error
}

func (m *mockProvider) Send(_ context.Context, msg *email.Email) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockProvider) Name() string {
	return "mock"
}
