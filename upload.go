package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/stefansundin/termreader/terminal"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"
)

var errInterrupted = errors.New("interrupted")

type uploadOptions struct {
	profile       string
	region        string
	endpointURL   string
	usePathStyle  bool
	noSignRequest bool
	mfaDuration   time.Duration
	debug         bool
}

func newS3Client(ctx context.Context, opts uploadOptions, bucket string) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		func(o *config.LoadOptions) error {
			if opts.profile != "" {
				o.SharedConfigProfile = opts.profile
			}
			if opts.debug {
				var lm aws.ClientLogMode = aws.LogRequest | aws.LogResponse
				o.ClientLogMode = &lm
			}
			return nil
		},
		config.WithAssumeRoleCredentialOptions(func(o *stscreds.AssumeRoleOptions) {
			o.Duration = opts.mfaDuration
			o.TokenProvider = func() (string, error) {
				return promptMFACode(os.Stdin, crlfWriter{os.Stderr})
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	newClient := func(region string) *s3.Client {
		return s3.NewFromConfig(cfg, func(o *s3.Options) {
			if opts.noSignRequest {
				o.Credentials = aws.AnonymousCredentials{}
			}
			if region != "" {
				o.Region = region
			}
			if opts.endpointURL != "" {
				o.BaseEndpoint = aws.String(opts.endpointURL)
			}
			if opts.usePathStyle {
				o.UsePathStyle = true
			}
		})
	}
	client := newClient(opts.region)

	// Get the bucket location
	if opts.endpointURL == "" && opts.region == "" {
		bucketLocationOutput, err := client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{
			Bucket: aws.String(bucket),
		})
		if err != nil {
			return nil, err
		}
		bucketRegion := normalizeBucketLocation(bucketLocationOutput.LocationConstraint)
		logrus.Debugf("Bucket region: %s", bucketRegion)
		client = newClient(bucketRegion)
	}
	return client, nil
}

// checkObject fails if the key is already taken, so a recording never
// overwrites an existing object.
func checkObject(ctx context.Context, client *s3.Client, bucket, key string) error {
	obj, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil || obj != nil {
		return fmt.Errorf("the object s3://%s/%s already exists, please delete it first", bucket, key)
	}
	if isSmithyErrorCode(err, 404) {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		logrus.Debugf("HeadObject error code: %s", apiErr.ErrorCode())
	}
	return err
}

func uploadRecording(ctx context.Context, client *s3.Client, bucket, key string, data []byte) (*s3.PutObjectOutput, error) {
	return client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
}

func promptMFACode(f *os.File, out io.Writer) (string, error) {
	for {
		fmt.Fprint(out, "Assume Role MFA token code: ")
		code, err := readCode(f, out)
		if err != nil {
			return "", err
		}
		if len(code) == 6 && isNumeric(code) {
			return code, nil
		}
		fmt.Fprintln(out, "Code must consist of 6 digits. Please try again.")
	}
}

func readCode(f *os.File, out io.Writer) (string, error) {
	r, err := terminal.Open(f, terminal.DefaultOptions())
	if err != nil {
		return "", err
	}
	defer r.Restore()
	code, err := readDigits(r, out)
	if err != nil {
		return "", err
	}
	return code, r.Close()
}

// readDigits collects digits until enter is pressed, echoing them itself so
// that other keys never show up on screen.
func readDigits(in io.ByteReader, out io.Writer) (string, error) {
	var code string
	for {
		b, err := in.ReadByte()
		if err != nil {
			return "", err
		}
		if b >= '0' && b <= '9' {
			code += string(b)
			fmt.Fprint(out, string(b))
		} else if (b == backspace || b == '\b') && len(code) > 0 {
			code = code[:len(code)-1]
			fmt.Fprint(out, "\b\033[J")
		} else if b == enterKey || b == '\n' {
			fmt.Fprintln(out)
			return code, nil
		} else if b == ctrlC || b == ctrlD {
			fmt.Fprintln(out)
			return "", errInterrupted
		}
	}
}
