package fetcher

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// stubS3 fakes the HeadObject call; presigning itself is offline
// signing, so a real PresignClient with static credentials works
// without any network.
type stubS3 struct {
	headErr error
	heads   []string
}

func (s *stubS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	s.heads = append(s.heads, aws.ToString(params.Key))
	if s.headErr != nil {
		return nil, s.headErr
	}
	return &s3.HeadObjectOutput{}, nil
}

type apiError struct {
	code string
}

func (e *apiError) Error() string                 { return e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

var _ smithy.APIError = (*apiError)(nil)

var _ = Describe("S3Source.PresignGet", func() {
	var (
		stub *stubS3
		src  *S3Source
		ctx  context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		stub = &stubS3{}

		signer := s3.NewFromConfig(aws.Config{
			Region:      "us-east-1",
			Credentials: credentials.NewStaticCredentialsProvider("test", "test", ""),
		})

		src = &S3Source{
			client:    stub,
			presigner: s3.NewPresignClient(signer),
			bucket:    "assets",
			expiry:    90 * time.Second,
		}
	})

	It("checks the object exists and returns a signed GET URL", func() {
		url, err := src.PresignGet(ctx, "images/streamer1.jpg")
		Expect(err).NotTo(HaveOccurred())

		Expect(stub.heads).To(Equal([]string{"images/streamer1.jpg"}))
		Expect(url).To(ContainSubstring("assets"))
		Expect(url).To(ContainSubstring("images/streamer1.jpg"))
		Expect(url).To(ContainSubstring("X-Amz-Signature="))
		Expect(url).To(ContainSubstring("X-Amz-Expires=90"))
	})

	It("maps a missing object to os.ErrNotExist wrapped in ErrFetch", func() {
		stub.headErr = &apiError{code: "NotFound"}

		_, err := src.PresignGet(ctx, "images/missing.jpg")
		Expect(err).To(MatchError(ErrFetch))
		Expect(err.Error()).To(ContainSubstring(os.ErrNotExist.Error()))
	})

	It("treats NoSuchKey the same as NotFound", func() {
		stub.headErr = &apiError{code: "NoSuchKey"}

		_, err := src.PresignGet(ctx, "images/missing.jpg")
		Expect(err).To(MatchError(ErrFetch))
		Expect(err.Error()).To(ContainSubstring(os.ErrNotExist.Error()))
	})

	It("wraps other head failures in ErrFetch without the not-exist marker", func() {
		stub.headErr = errors.New("access denied")

		_, err := src.PresignGet(ctx, "images/secret.jpg")
		Expect(err).To(MatchError(ErrFetch))
		Expect(err.Error()).To(ContainSubstring("access denied"))
		Expect(err.Error()).NotTo(ContainSubstring(os.ErrNotExist.Error()))
	})
})
