package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dotcommander/randkey/internal/store"
	"github.com/dotcommander/randkey/pkg/keyspace"
)

// Checker is a keyspace.ExistenceChecker over marker objects in a bucket.
type Checker struct {
	api    API
	bucket string
	prefix string
	scheme keyspace.Scheme
}

// NewChecker binds bucket and prefix to scheme.
func NewChecker(api API, bucket, prefix string, scheme keyspace.Scheme) *Checker {
	return &Checker{api: api, bucket: bucket, prefix: prefix, scheme: scheme}
}

// ObjectKey returns the object name that marks id as taken.
func (c *Checker) ObjectKey(id keyspace.ID) (string, error) {
	display, err := c.scheme.Encode(id)
	if err != nil {
		return "", err
	}
	return c.prefix + display, nil
}

// Exists implements keyspace.ExistenceChecker. Only a not-found answer means
// free; every other S3 error is returned.
func (c *Checker) Exists(ctx context.Context, id keyspace.ID) (bool, error) {
	key, err := c.ObjectKey(id)
	if err != nil {
		return false, err
	}
	_, err = c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("head s3://%s/%s: %w", c.bucket, key, err)
}

// Reserve writes the marker for id. The write is conditional on the object
// being absent, so a concurrent writer that got there first yields
// *store.UniquenessConflictError.
func (c *Checker) Reserve(ctx context.Context, id keyspace.ID, label string) (string, error) {
	key, err := c.ObjectKey(id)
	if err != nil {
		return "", err
	}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(nil),
		IfNoneMatch: aws.String("*"),
		Metadata:    map[string]string{"scheme": c.scheme.Name()},
	}
	if label != "" {
		in.Metadata["label"] = label
	}
	if _, err := c.api.PutObject(ctx, in); err != nil {
		if isPreconditionFailed(err) {
			return "", &store.UniquenessConflictError{Namespace: "s3://" + c.bucket + "/" + c.prefix, Key: key}
		}
		return "", fmt.Errorf("put s3://%s/%s: %w", c.bucket, key, err)
	}
	return key, nil
}

// Release deletes the marker for id.
func (c *Checker) Release(ctx context.Context, id keyspace.ID) error {
	key, err := c.ObjectKey(id)
	if err != nil {
		return err
	}
	if _, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// Reservation is the outcome of Allocate.
type Reservation struct {
	ID        keyspace.ID `json:"-"`
	Key       string      `json:"key"`
	ObjectKey string      `json:"object_key"`
	Bucket    string      `json:"bucket"`
	Conflicts int         `json:"conflicts"`
}

// Allocate draws a free id and reserves it, rerunning both steps up to
// maxRetries times when another writer reserves the same key in between.
func (c *Checker) Allocate(ctx context.Context, label string, maxRetries int) (*Reservation, error) {
	var res *Reservation
	conflicts := 0
	err := store.RetryOnConflict(ctx, maxRetries, func() error {
		id, err := keyspace.Allocate(ctx, c.scheme, c)
		if err != nil {
			return err
		}
		objectKey, err := c.Reserve(ctx, id, label)
		if err != nil {
			if errors.Is(err, store.ErrUniquenessConflict) {
				conflicts++
				slog.WarnContext(ctx, "object key reservation lost race", "bucket", c.bucket, "conflicts", conflicts)
			}
			return err
		}
		display, err := c.scheme.Encode(id)
		if err != nil {
			return err
		}
		res = &Reservation{ID: id, Key: display, ObjectKey: objectKey, Bucket: c.bucket}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Conflicts = conflicts
	return res, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	if errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	var ae smithy.APIError
	return errors.As(err, &ae) && (ae.ErrorCode() == "NotFound" || ae.ErrorCode() == "NoSuchKey")
}

func isPreconditionFailed(err error) bool {
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		switch re.HTTPStatusCode() {
		case http.StatusPreconditionFailed, http.StatusConflict:
			return true
		}
	}
	var ae smithy.APIError
	return errors.As(err, &ae) && (ae.ErrorCode() == "PreconditionFailed" || ae.ErrorCode() == "ConditionalRequestConflict")
}
