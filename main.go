package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/stefansundin/termreader/terminal"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/stefansundin/go-zflag"
)

const version = "0.1.0"

func init() {
	// Do not fail if a region is not specified anywhere
	// This is only used for the first call that looks up the bucket region
	if _, present := os.LookupEnv("AWS_DEFAULT_REGION"); !present {
		os.Setenv("AWS_DEFAULT_REGION", "us-east-1")
	}
}

func main() {
	exitCode, err := run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode)
}

func run() (int, error) {
	var recordFn, uploadUri, profile, region, endpointURL string
	var echo, partial, usePathStyle, noSignRequest, debug, versionFlag bool
	var count int
	var mfaDuration time.Duration
	zflag.BoolVar(&echo, "echo", false, "Show typed characters while reading.")
	zflag.IntVar(&count, "count", 0, "Read exactly this many bytes and exit. By default keys are read until Ctrl-C or Ctrl-D.")
	zflag.BoolVar(&partial, "partial", false, "With --count, keep the bytes read so far if stdin is closed or the terminal hangs up before the count is reached.")
	zflag.StringVar(&recordFn, "record", "", "Append the raw bytes to this file.")
	zflag.StringVar(&uploadUri, "upload", "", "Upload the raw bytes to S3 on exit. (e.g. \"s3://bucket/keys.bin\")")
	zflag.StringVar(&profile, "profile", "", "Use a specific profile from your credential file.")
	zflag.StringVar(&region, "region", "", "The bucket region. Avoids one API call.")
	zflag.StringVar(&endpointURL, "endpoint-url", "", "Override the S3 endpoint URL. (for use with S3 compatible APIs)")
	zflag.BoolVar(&usePathStyle, "use-path-style", false, "Use S3 Path Style.")
	zflag.BoolVar(&noSignRequest, "no-sign-request", false, "Do not sign requests. This does not work with Amazon S3, but may work with other S3 APIs.")
	zflag.DurationVar(&mfaDuration, "mfa-duration", time.Hour, "MFA duration. (max \"12h\")")
	zflag.BoolVar(&debug, "debug", false, "Turn on debug logging.")
	zflag.BoolVar(&versionFlag, "version", false, "Print version number.")
	zflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "termreader version %s\n", version)
		fmt.Fprintln(os.Stderr, "Website: https://github.com/stefansundin/termreader")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "Usage: %s [parameters]\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Puts the terminal in raw mode and prints every byte that is typed.")
		fmt.Fprintln(os.Stderr, "Press Ctrl-C or Ctrl-D to exit.")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Parameters:")
		zflag.PrintDefaults()
	}
	zflag.Parse()

	if versionFlag {
		fmt.Println(version)
		return 0, nil
	}

	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableLevelTruncation: true})
	logrus.SetOutput(crlfWriter{os.Stderr})
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if zflag.NArg() > 0 {
		zflag.Usage()
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Error: unexpected arguments:", strings.Join(zflag.Args(), " "))
		return 1, nil
	}
	if count < 0 {
		fmt.Fprintln(os.Stderr, "Error: --count can not be negative.")
		return 1, nil
	}
	if partial && count == 0 {
		fmt.Fprintln(os.Stderr, "Warning: --partial has no effect without --count.")
	}
	if endpointURL != "" && !strings.HasPrefix(endpointURL, "http://") && !strings.HasPrefix(endpointURL, "https://") {
		fmt.Fprintln(os.Stderr, "Error: the endpoint URL must start with http:// or https://.")
		return 1, nil
	}
	if mfaDuration > 12*time.Hour {
		fmt.Fprintln(os.Stderr, "Warning: MFA duration can not exceed 12 hours.")
	}
	if !terminal.IsTerminal(os.Stdin.Fd()) {
		fmt.Fprintln(os.Stderr, "Error: stdin is not a terminal.")
		return 1, nil
	}

	var sinks []io.Writer
	if recordFn != "" {
		f, err := os.OpenFile(recordFn, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return 1, err
		}
		defer f.Close()
		sinks = append(sinks, f)
	}

	// Check the destination before taking over the terminal, so that an MFA
	// prompt or an error shows up right away
	ctx := context.TODO()
	var bucket, key string
	var client *s3.Client
	var captured bytes.Buffer
	uploader := uploadOptions{
		profile:       profile,
		region:        region,
		endpointURL:   endpointURL,
		usePathStyle:  usePathStyle,
		noSignRequest: noSignRequest,
		mfaDuration:   mfaDuration,
		debug:         debug,
	}
	if uploadUri != "" {
		bucket, key = parseS3Uri(uploadUri)
		if bucket == "" || key == "" {
			fmt.Fprintln(os.Stderr, "Error: the upload destination must have the format s3://<bucketname>/<key>")
			return 1, nil
		}
		var err error
		client, err = newS3Client(ctx, uploader, bucket)
		if err != nil {
			return 1, err
		}
		if err := checkObject(ctx, client, bucket, key); err != nil {
			return 1, err
		}
		sinks = append(sinks, &captured)
	}

	r, err := terminal.OpenStdin(terminal.Options{Echo: echo})
	if err != nil {
		return 1, err
	}
	defer r.Restore()
	logrus.Debugf("Terminal is in raw mode (fd %d, echo %v)", r.Fd(), echo)

	// Ctrl-C no longer generates a signal, but other signals still end the
	// process and must not leave the terminal in raw mode
	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		sig := <-signalChannel
		r.Restore()
		fmt.Fprintf(os.Stderr, "\nReceived %v, exiting.\n", sig)
		os.Exit(1)
	}()

	out := crlfWriter{os.Stdout}
	if count == 0 {
		fmt.Fprintln(crlfWriter{os.Stderr}, "Press keys to see their bytes. Press Ctrl-C or Ctrl-D to exit.")
	}
	s := &session{
		in:      r,
		out:     out,
		count:   count,
		partial: partial,
	}
	if len(sinks) > 0 {
		s.record = io.MultiWriter(sinks...)
	}
	runErr := s.run()

	// Restore explicitly so a failure can be reported
	if err := r.Close(); err != nil {
		return 1, err
	}
	signal.Reset(os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	fmt.Fprintf(os.Stderr, "Read %s.\n", formatSize(s.n))
	if runErr != nil {
		return 1, runErr
	}

	if uploadUri != "" {
		if captured.Len() == 0 {
			fmt.Fprintln(os.Stderr, "Nothing to upload.")
			return 0, nil
		}
		fmt.Fprintf(os.Stderr, "Uploading %s to s3://%s/%s\n", formatSize(captured.Len()), bucket, key)
		output, err := uploadRecording(ctx, client, bucket, key, captured.Bytes())
		if err != nil {
			return 1, err
		}
		fmt.Fprintf(os.Stderr, "Uploaded. ETag: %s\n", aws.ToString(output.ETag))
	}

	return 0, nil
}
