// Package deployer creates, updates and deletes the cluster's CloudFormation stacks.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/rglonek/logger"
)

// MaxTemplateBodySize is the largest template CloudFormation accepts inline.
const MaxTemplateBodySize = 51200

const DefaultWaitTimeout = 60 * time.Minute

var (
	ErrTemplateTooLarge = errors.New("template exceeds the inline size limit and no template bucket was given")
	ErrStackFailed      = errors.New("stack is in a failed state")
)

// CloudFormationAPI is the part of the CloudFormation API used by the deployer.
type CloudFormationAPI interface {
	CreateStack(ctx context.Context, params *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
	UpdateStack(ctx context.Context, params *cloudformation.UpdateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error)
	DeleteStack(ctx context.Context, params *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error)
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	ListStacks(ctx context.Context, params *cloudformation.ListStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ListStacksOutput, error)
}

// ObjectPutter uploads large templates.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Deployer struct {
	cf          CloudFormationAPI
	s3          ObjectPutter
	log         *logger.Logger
	bucket      string
	region      string
	waitTimeout time.Duration
}

type Option func(*Deployer)

// WithTemplateBucket enables uploading templates larger than MaxTemplateBodySize to bucket.
func WithTemplateBucket(client ObjectPutter, bucket string, region string) Option {
	return func(d *Deployer) {
		d.s3 = client
		d.bucket = bucket
		d.region = region
	}
}

func WithWaitTimeout(timeout time.Duration) Option {
	return func(d *Deployer) {
		d.waitTimeout = timeout
	}
}

func New(cf CloudFormationAPI, log *logger.Logger, opts ...Option) *Deployer {
	if log == nil {
		log = logger.NewLogger()
	}
	d := &Deployer{cf: cf, log: log, waitTimeout: DefaultWaitTimeout}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Output is a single stack output.
type Output struct {
	Key        string
	Value      string
	ExportName string
}

// StackInfo summarizes a stack for listing.
type StackInfo struct {
	Name    string
	Status  string
	Reason  string
	Created time.Time
	Updated time.Time
}

func isAPIError(err error, code string, messageContains string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.ErrorCode() == code && strings.Contains(apiErr.ErrorMessage(), messageContains)
}

func isNotFound(err error) bool {
	return isAPIError(err, "ValidationError", "does not exist")
}

func isNoUpdates(err error) bool {
	return isAPIError(err, "ValidationError", "No updates are to be performed")
}

// describe returns the stack, or nil if it does not exist.
func (d *Deployer) describe(ctx context.Context, name string) (*cftypes.Stack, error) {
	out, err := d.cf.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(name)})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not cloudformation.DescribeStacks: %w", err)
	}
	if len(out.Stacks) == 0 {
		return nil, nil
	}
	return &out.Stacks[0], nil
}

// templateSource returns either an inline body or the URL of an uploaded copy.
func (d *Deployer) templateSource(ctx context.Context, name string, body string) (templateBody *string, templateURL *string, err error) {
	if len(body) <= MaxTemplateBodySize {
		return aws.String(body), nil, nil
	}
	if d.s3 == nil || d.bucket == "" {
		return nil, nil, fmt.Errorf("%s: %d bytes: %w", name, len(body), ErrTemplateTooLarge)
	}
	key := fmt.Sprintf("oscluster/%s/%s.template", name, uuid.New().String())
	d.log.Detail("Uploading %s template (%d bytes) to s3://%s/%s", name, len(body), d.bucket, key)
	_, err = d.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(body),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not s3.PutObject: %w", err)
	}
	return nil, aws.String(fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", d.bucket, d.region, key)), nil
}

// Deploy creates the stack, or updates it when it already exists, waits for
// the operation to finish and returns the stack outputs.
func (d *Deployer) Deploy(ctx context.Context, name string, body string) ([]Output, error) {
	existing, err := d.describe(ctx, name)
	if err != nil {
		return nil, err
	}
	templateBody, templateURL, err := d.templateSource(ctx, name, body)
	if err != nil {
		return nil, err
	}
	capabilities := []cftypes.Capability{cftypes.CapabilityCapabilityIam, cftypes.CapabilityCapabilityNamedIam}
	token := uuid.New().String()
	if existing == nil {
		d.log.Info("Creating stack %s", name)
		_, err = d.cf.CreateStack(ctx, &cloudformation.CreateStackInput{
			StackName:          aws.String(name),
			TemplateBody:       templateBody,
			TemplateURL:        templateURL,
			Capabilities:       capabilities,
			ClientRequestToken: aws.String(token),
			Tags:               []cftypes.Tag{{Key: aws.String("oscluster"), Value: aws.String(name)}},
		})
		if err != nil {
			return nil, fmt.Errorf("could not cloudformation.CreateStack: %w", err)
		}
		d.log.Detail("Waiting for %s to reach CREATE_COMPLETE", name)
		err = cloudformation.NewStackCreateCompleteWaiter(d.cf).Wait(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(name)}, d.waitTimeout)
		if err != nil {
			return nil, fmt.Errorf("could not cloudformation.WaitUntilStackCreateComplete: %w", err)
		}
		return d.Outputs(ctx, name)
	}

	status := string(existing.StackStatus)
	if existing.StackStatus == cftypes.StackStatusRollbackComplete || strings.HasSuffix(status, "_FAILED") {
		return nil, fmt.Errorf("%s: %s: %w, destroy it before deploying again", name, status, ErrStackFailed)
	}
	d.log.Info("Updating stack %s", name)
	_, err = d.cf.UpdateStack(ctx, &cloudformation.UpdateStackInput{
		StackName:          aws.String(name),
		TemplateBody:       templateBody,
		TemplateURL:        templateURL,
		Capabilities:       capabilities,
		ClientRequestToken: aws.String(token),
	})
	if err != nil {
		if isNoUpdates(err) {
			d.log.Info("Stack %s is up to date", name)
			return d.Outputs(ctx, name)
		}
		return nil, fmt.Errorf("could not cloudformation.UpdateStack: %w", err)
	}
	d.log.Detail("Waiting for %s to reach UPDATE_COMPLETE", name)
	err = cloudformation.NewStackUpdateCompleteWaiter(d.cf).Wait(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(name)}, d.waitTimeout)
	if err != nil {
		return nil, fmt.Errorf("could not cloudformation.WaitUntilStackUpdateComplete: %w", err)
	}
	return d.Outputs(ctx, name)
}

// Destroy deletes the stack and waits until it is gone. A missing stack is not an error.
func (d *Deployer) Destroy(ctx context.Context, name string) error {
	existing, err := d.describe(ctx, name)
	if err != nil {
		return err
	}
	if existing == nil {
		d.log.Info("Stack %s does not exist, nothing to delete", name)
		return nil
	}
	d.log.Info("Deleting stack %s", name)
	_, err = d.cf.DeleteStack(ctx, &cloudformation.DeleteStackInput{
		StackName:          aws.String(name),
		ClientRequestToken: aws.String(uuid.New().String()),
	})
	if err != nil {
		return fmt.Errorf("could not cloudformation.DeleteStack: %w", err)
	}
	err = cloudformation.NewStackDeleteCompleteWaiter(d.cf).Wait(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(name)}, d.waitTimeout)
	if err != nil {
		return fmt.Errorf("could not cloudformation.WaitUntilStackDeleteComplete: %w", err)
	}
	return nil
}

// Outputs returns the outputs of an existing stack.
func (d *Deployer) Outputs(ctx context.Context, name string) ([]Output, error) {
	stack, err := d.describe(ctx, name)
	if err != nil {
		return nil, err
	}
	if stack == nil {
		return nil, fmt.Errorf("stack %s does not exist", name)
	}
	outputs := []Output{}
	for _, o := range stack.Outputs {
		outputs = append(outputs, Output{
			Key:        aws.ToString(o.OutputKey),
			Value:      aws.ToString(o.OutputValue),
			ExportName: aws.ToString(o.ExportName),
		})
	}
	return outputs, nil
}

// OutputValue returns a single output of an existing stack.
func (d *Deployer) OutputValue(ctx context.Context, name string, key string) (string, error) {
	outputs, err := d.Outputs(ctx, name)
	if err != nil {
		return "", err
	}
	for _, o := range outputs {
		if o.Key == key {
			return o.Value, nil
		}
	}
	return "", fmt.Errorf("stack %s has no output %s", name, key)
}

// List returns the live stacks whose name starts with prefix.
func (d *Deployer) List(ctx context.Context, prefix string) ([]StackInfo, error) {
	stacks := []StackInfo{}
	paginator := cloudformation.NewListStacksPaginator(d.cf, &cloudformation.ListStacksInput{})
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not cloudformation.ListStacks: %w", err)
		}
		for _, s := range out.StackSummaries {
			if s.StackStatus == cftypes.StackStatusDeleteComplete {
				continue
			}
			if !strings.HasPrefix(aws.ToString(s.StackName), prefix) {
				continue
			}
			stacks = append(stacks, StackInfo{
				Name:    aws.ToString(s.StackName),
				Status:  string(s.StackStatus),
				Reason:  aws.ToString(s.StackStatusReason),
				Created: aws.ToTime(s.CreationTime),
				Updated: aws.ToTime(s.LastUpdatedTime),
			})
		}
	}
	return stacks, nil
}
