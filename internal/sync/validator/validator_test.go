package validator

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/go-git/go-billy/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/deployer/deptypes"
	deperrors "github.com/input-output-hk/catalyst-forge-libs/deployer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/fingerprint"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/retry"
	"github.com/input-output-hk/catalyst-forge-libs/deployer/internal/testutil"
)

func noSleep(context.Context, time.Duration) error { return nil }

type harness struct {
	store *testutil.FakeS3
	cfn   *testutil.MockCloudFormationClient
	calls []*cloudformation.ValidateTemplateInput
	v     *Validator
}

func newHarness(t *testing.T, fs billy.Filesystem, cfg Config, validate func(*cloudformation.ValidateTemplateInput) error) *harness {
	t.Helper()

	h := &harness{store: testutil.NewFakeS3()}
	h.cfn = &testutil.MockCloudFormationClient{
		ValidateTemplateFunc: func(
			_ context.Context,
			in *cloudformation.ValidateTemplateInput,
			_ ...func(*cloudformation.Options),
		) (*cloudformation.ValidateTemplateOutput, error) {
			h.calls = append(h.calls, in)
			if validate != nil {
				if err := validate(in); err != nil {
					return nil, err
				}
			}
			return &cloudformation.ValidateTemplateOutput{}, nil
		},
	}

	if cfg.Bucket == "" {
		cfg.Bucket = "demo"
	}
	policy := retry.New(retry.WithMaxAttempts(3), retry.WithSleep(noSleep))
	h.v = New(h.cfn, h.store, fs, fingerprint.NewCalculator(1024), policy, cfg, testutil.DiscardLogger())
	return h
}

func candidate(path string, size int) deptypes.Candidate {
	return deptypes.Candidate{Path: path, Key: "rel/" + path, Size: int64(size)}
}

func TestIsTemplate(t *testing.T) {
	v := New(nil, testutil.NewFakeS3(), nil, fingerprint.NewCalculator(0), nil, Config{}, nil)

	tests := []struct {
		path string
		want bool
	}{
		{"templates/app.yml", true},
		{"templates/app.yaml", true},
		{"templates/app.json", true},
		{"cloudformation/vpc.json", true},
		{"stacks/cloudformation-vpc.yml", true},
		{"templates/readme.txt", false},
		{"lambda/config.json", false},
		{"templates/app.yml.bak", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, v.IsTemplate(tt.path))
		})
	}

	custom := New(nil, testutil.NewFakeS3(), nil, fingerprint.NewCalculator(0), nil,
		Config{Markers: []string{"stacks"}, Extensions: []string{".template"}}, nil)
	assert.True(t, custom.IsTemplate("stacks/vpc.template"))
	assert.False(t, custom.IsTemplate("templates/app.yml"))
}

func TestValidate_SkipsNonTemplates(t *testing.T) {
	fs := testutil.NewTree(t, map[string][]byte{"templates/readme.txt": []byte("hi")})
	h := newHarness(t, fs, Config{}, nil)

	out, err := h.v.Validate(context.Background(), candidate("templates/readme.txt", 2))
	require.NoError(t, err)
	assert.Equal(t, deptypes.ValidationSkipped, out.Status)
	assert.Empty(t, h.calls)
}

func TestValidate_Inline(t *testing.T) {
	body := []byte("Resources: {}\n")
	fs := testutil.NewTree(t, map[string][]byte{"templates/app.yml": body})
	h := newHarness(t, fs, Config{}, nil)

	out, err := h.v.Validate(context.Background(), candidate("templates/app.yml", len(body)))
	require.NoError(t, err)
	assert.Equal(t, deptypes.ValidationPassed, out.Status)
	assert.Equal(t, deptypes.StrategyInline, out.Strategy)

	require.Len(t, h.calls, 1)
	assert.Equal(t, string(body), aws.ToString(h.calls[0].TemplateBody))
	assert.Nil(t, h.calls[0].TemplateURL)
	assert.Equal(t, 0, h.store.Calls("PutObject"))
}

func TestValidate_StagedBySize(t *testing.T) {
	body := testutil.GenerateRandomData(200)
	fs := testutil.NewTree(t, map[string][]byte{"templates/app.json": body})

	var stagedBody []byte
	h := newHarness(t, fs, Config{Region: "eu-west-1", Threshold: 100}, nil)
	h.cfn.ValidateTemplateFunc = func(
		_ context.Context,
		in *cloudformation.ValidateTemplateInput,
		_ ...func(*cloudformation.Options),
	) (*cloudformation.ValidateTemplateOutput, error) {
		h.calls = append(h.calls, in)
		obj, ok := h.store.Object("demo", "deployer_validate/rel/templates/app.json")
		require.True(t, ok, "scratch object must exist during validation")
		stagedBody = obj.Body
		return &cloudformation.ValidateTemplateOutput{}, nil
	}

	out, err := h.v.Validate(context.Background(), candidate("templates/app.json", len(body)))
	require.NoError(t, err)
	assert.Equal(t, deptypes.StrategyStaged, out.Strategy)

	require.Len(t, h.calls, 1)
	assert.Nil(t, h.calls[0].TemplateBody)
	assert.Equal(t,
		"https://s3-eu-west-1.amazonaws.com/demo/deployer_validate/rel/templates/app.json",
		aws.ToString(h.calls[0].TemplateURL))
	assert.Equal(t, body, stagedBody)

	assert.Empty(t, h.store.Keys(), "scratch object must be removed")
	assert.Equal(t, 1, h.store.Calls("DeleteObject"))
}

// flakyFS fails the first Open so fingerprinting fails but staging succeeds.
type flakyFS struct {
	billy.Filesystem
	failures int
}

func (f *flakyFS) Open(name string) (billy.File, error) {
	if f.failures > 0 {
		f.failures--
		return nil, os.ErrPermission
	}
	return f.Filesystem.Open(name)
}

func TestValidate_StagedWhenFingerprintFails(t *testing.T) {
	body := []byte("{}")
	fs := &flakyFS{Filesystem: testutil.NewTree(t, map[string][]byte{"templates/app.json": body}), failures: 1}
	h := newHarness(t, fs, Config{}, nil)

	out, err := h.v.Validate(context.Background(), candidate("templates/app.json", len(body)))
	require.NoError(t, err)
	assert.Equal(t, deptypes.StrategyStaged, out.Strategy)

	require.Len(t, h.calls, 1)
	assert.Equal(t, "https://s3.amazonaws.com/demo/deployer_validate/rel/templates/app.json",
		aws.ToString(h.calls[0].TemplateURL))
	assert.Empty(t, h.store.Keys())
}

func TestValidate_Failure(t *testing.T) {
	body := testutil.GenerateRandomData(300)
	fs := testutil.NewTree(t, map[string][]byte{"templates/app.json": body})
	h := newHarness(t, fs, Config{Threshold: 100}, func(*cloudformation.ValidateTemplateInput) error {
		return &smithy.GenericAPIError{Code: "ValidationError", Message: "Template format error: JSON not well-formed."}
	})

	out, err := h.v.Validate(context.Background(), candidate("templates/app.json", len(body)))
	require.Error(t, err)

	assert.Equal(t, deptypes.ValidationFailed, out.Status)
	assert.Equal(t, "Template format error: JSON not well-formed.", out.Message)
	assert.True(t, deperrors.IsFatal(err))
	assert.True(t, deperrors.IsValidation(err))
	assert.ErrorIs(t, err, deperrors.ErrValidationFailed)
	assert.Contains(t, err.Error(), "templates/app.json")

	// Non-retryable: one call only, and the scratch object is gone.
	assert.Len(t, h.calls, 1)
	assert.Empty(t, h.store.Keys())
}

func TestValidate_RetriesThrottling(t *testing.T) {
	body := []byte("Resources: {}\n")
	fs := testutil.NewTree(t, map[string][]byte{"templates/app.yml": body})

	attempts := 0
	h := newHarness(t, fs, Config{}, func(*cloudformation.ValidateTemplateInput) error {
		attempts++
		if attempts < 3 {
			return &smithy.GenericAPIError{Code: "Throttling", Message: "Rate exceeded"}
		}
		return nil
	})

	out, err := h.v.Validate(context.Background(), candidate("templates/app.yml", len(body)))
	require.NoError(t, err)
	assert.Equal(t, deptypes.ValidationPassed, out.Status)
	assert.Equal(t, 3, attempts)
}

func TestValidate_ThrottlingExhausted(t *testing.T) {
	body := []byte("Resources: {}\n")
	fs := testutil.NewTree(t, map[string][]byte{"templates/app.yml": body})
	h := newHarness(t, fs, Config{}, func(*cloudformation.ValidateTemplateInput) error {
		return &smithy.GenericAPIError{Code: "Throttling", Message: "Rate exceeded"}
	})

	_, err := h.v.Validate(context.Background(), candidate("templates/app.yml", len(body)))
	require.Error(t, err)
	assert.True(t, deperrors.IsValidation(err))
	assert.True(t, deperrors.IsFatal(err))
	assert.ErrorIs(t, err, deperrors.ErrRetriesExhausted)
	assert.Len(t, h.calls, 3)
}

func TestValidate_StagingUploadFails(t *testing.T) {
	body := testutil.GenerateRandomData(300)
	fs := testutil.NewTree(t, map[string][]byte{"templates/app.json": body})
	h := newHarness(t, fs, Config{Threshold: 100}, nil)
	h.store.PutErr = func(string) error { return errors.New("access denied") }

	_, err := h.v.Validate(context.Background(), candidate("templates/app.json", len(body)))
	require.Error(t, err)
	assert.Equal(t, deperrors.CodeStagingFailed, deperrors.CodeOf(err))
	assert.True(t, deperrors.IsFatal(err))
	assert.Empty(t, h.calls)
	assert.Equal(t, 1, h.store.Calls("DeleteObject"))
}

func TestValidate_ScratchDeleteFailureIsNotFatal(t *testing.T) {
	body := testutil.GenerateRandomData(300)
	fs := testutil.NewTree(t, map[string][]byte{"templates/app.json": body})

	deletes := 0
	mock := &testutil.MockS3Client{
		DeleteObjectFunc: func(context.Context, *s3.DeleteObjectInput, ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
			deletes++
			return nil, errors.New("delete denied")
		},
	}
	cfn := &testutil.MockCloudFormationClient{}
	policy := retry.New(retry.WithSleep(noSleep))
	v := New(cfn, mock, fs, fingerprint.NewCalculator(1024), policy,
		Config{Bucket: "demo", Threshold: 100}, testutil.DiscardLogger())

	out, err := v.Validate(context.Background(), candidate("templates/app.json", len(body)))
	require.NoError(t, err)
	assert.Equal(t, deptypes.ValidationPassed, out.Status)
	assert.Equal(t, 1, deletes)
}

func TestValidateAll_StopsAtFirstFailure(t *testing.T) {
	fs := testutil.NewTree(t, map[string][]byte{
		"templates/a.json":   []byte("bad"),
		"templates/b.yml":    []byte("Resources: {}"),
		"templates/note.txt": []byte("n"),
	})
	h := newHarness(t, fs, Config{}, func(in *cloudformation.ValidateTemplateInput) error {
		if aws.ToString(in.TemplateBody) == "bad" {
			return &smithy.GenericAPIError{Code: "ValidationError", Message: "bad"}
		}
		return nil
	})

	passed, err := h.v.ValidateAll(context.Background(), []deptypes.Candidate{
		candidate("templates/note.txt", 1),
		candidate("templates/a.json", 3),
		candidate("templates/b.yml", 13),
	})
	require.Error(t, err)
	assert.Equal(t, 0, passed)
	assert.Len(t, h.calls, 1)

	passed, err = h.v.ValidateAll(context.Background(), []deptypes.Candidate{
		candidate("templates/note.txt", 1),
		candidate("templates/b.yml", 13),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, passed)
}

func TestTemplateURL(t *testing.T) {
	assert.Equal(t, "https://s3.amazonaws.com/b/k", TemplateURL("us-east-1", "b", "k"))
	assert.Equal(t, "https://s3.amazonaws.com/b/k", TemplateURL("", "b", "k"))
	assert.Equal(t, "https://s3-ap-southeast-2.amazonaws.com/b/k/x.json", TemplateURL("ap-southeast-2", "b", "k/x.json"))
	assert.Equal(t, "deployer_validate/rel/a.json", ScratchKey("rel/a.json"))
}
