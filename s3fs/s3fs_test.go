package s3fs

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	router "github.com/goliatone/go-static-router"
)

type fakeClient struct {
	objects map[string]string
	modTime time.Time
	headErr error
	gets    []string
	ranges  []string
	lastCtx context.Context
}

func newFakeClient(objects map[string]string) *fakeClient {
	return &fakeClient{
		objects: objects,
		modTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func (c *fakeClient) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	c.lastCtx = ctx
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.headErr != nil {
		return nil, c.headErr
	}
	body, ok := c.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(body))),
		LastModified:  aws.Time(c.modTime),
	}, nil
}

func (c *fakeClient) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	body, ok := c.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	c.gets = append(c.gets, key)
	if r := aws.ToString(in.Range); r != "" {
		c.ranges = append(c.ranges, r)
		start, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(r, "bytes="), "-"))
		if err != nil {
			return nil, err
		}
		body = body[start:]
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func (c *fakeClient) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	prefix := aws.ToString(in.Prefix)
	out := &s3.ListObjectsV2Output{KeyCount: aws.Int32(0)}
	for key := range c.objects {
		if strings.HasPrefix(key, prefix) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
			out.KeyCount = aws.Int32(1)
			break
		}
	}
	return out, nil
}

func TestStatFileDirAndMissing(t *testing.T) {
	client := newFakeClient(map[string]string{
		"site/app.js":          "console.log(1)",
		"site/images/logo.svg": "<svg/>",
	})
	fsys := NewWithClient(client, "bucket", "/site/")

	info, err := fsys.Stat("app.js")
	require.NoError(t, err)
	assert.Equal(t, "app.js", info.Name())
	assert.Equal(t, int64(len("console.log(1)")), info.Size())
	assert.True(t, info.Mode().IsRegular())
	assert.Equal(t, client.modTime, info.ModTime())

	info, err = fsys.Stat("images")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = fsys.Stat("missing.js")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = fsys.Stat("../etc/passwd")
	assert.ErrorIs(t, err, fs.ErrInvalid)
}

func TestStatPropagatesClientErrors(t *testing.T) {
	client := newFakeClient(nil)
	client.headErr = errors.New("connection reset")
	fsys := NewWithClient(client, "bucket", "")

	_, err := fsys.Stat("app.js")
	require.Error(t, err)
	assert.NotErrorIs(t, err, fs.ErrNotExist)
}

func TestStatContextUsesRequestContext(t *testing.T) {
	client := newFakeClient(map[string]string{"a.txt": "a"})
	fsys := NewWithClient(client, "bucket", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fsys.StatContext(ctx, "a.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ctx, client.lastCtx)
}

func TestOpenReadAndSeek(t *testing.T) {
	client := newFakeClient(map[string]string{"a.txt": "hello world"})
	fsys := NewWithClient(client, "bucket", "")

	f, err := fsys.Open("a.txt")
	require.NoError(t, err)
	defer f.Close()

	rs, ok := f.(io.ReadSeeker)
	require.True(t, ok)

	size, err := rs.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(11), size)

	_, err = rs.Seek(6, io.SeekStart)
	require.NoError(t, err)

	data, err := io.ReadAll(rs)
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))
	assert.Equal(t, []string{"bytes=6-"}, client.ranges)
}

func TestServedThroughStaticRoute(t *testing.T) {
	client := newFakeClient(map[string]string{
		"app.js":       "console.log('s3')",
		"images/a.png": "png",
	})

	srv := router.NewHTTPServer()
	srv.Fallback(func(c router.Context) error {
		return c.SendString("fallback")
	})

	binder := router.NewStaticBinder(nil)
	_, err := binder.Bind(srv, "/media", &router.StaticOptions{
		FS: NewWithClient(client, "bucket", ""),
	})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/media/app.js", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "console.log('s3')", rr.Body.String())
	assert.Equal(t, "text/javascript", rr.Header().Get("Content-Type"))

	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/media/images", nil))
	assert.Equal(t, "fallback", rr.Body.String())

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/media/app.js", nil)
	req.Header.Set("Range", "bytes=8-")
	srv.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusPartialContent, rr.Code)
	assert.Equal(t, "log('s3')", rr.Body.String())
}
