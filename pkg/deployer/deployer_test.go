package deployer

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/require"
)

// fakeCloudFormation completes every operation immediately.
type fakeCloudFormation struct {
	stacks  map[string]*cftypes.Stack
	creates []*cloudformation.CreateStackInput
	updates []*cloudformation.UpdateStackInput
	deletes []string
	noop    bool
}

func newFake() *fakeCloudFormation {
	return &fakeCloudFormation{stacks: map[string]*cftypes.Stack{}}
}

func notFound(name string) error {
	return &smithy.GenericAPIError{Code: "ValidationError", Message: "Stack with id " + name + " does not exist"}
}

func (f *fakeCloudFormation) CreateStack(ctx context.Context, params *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error) {
	f.creates = append(f.creates, params)
	name := aws.ToString(params.StackName)
	f.stacks[name] = &cftypes.Stack{
		StackName:   params.StackName,
		StackStatus: cftypes.StackStatusCreateComplete,
		Outputs: []cftypes.Output{{
			OutputKey:   aws.String("loadbalancerurl"),
			OutputValue: aws.String("nlb.example.com"),
			ExportName:  aws.String("Loadbalancer-URL"),
		}},
	}
	return &cloudformation.CreateStackOutput{StackId: aws.String("id-" + name)}, nil
}

func (f *fakeCloudFormation) UpdateStack(ctx context.Context, params *cloudformation.UpdateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error) {
	if f.noop {
		return nil, &smithy.GenericAPIError{Code: "ValidationError", Message: "No updates are to be performed."}
	}
	f.updates = append(f.updates, params)
	f.stacks[aws.ToString(params.StackName)].StackStatus = cftypes.StackStatusUpdateComplete
	return &cloudformation.UpdateStackOutput{}, nil
}

func (f *fakeCloudFormation) DeleteStack(ctx context.Context, params *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error) {
	name := aws.ToString(params.StackName)
	f.deletes = append(f.deletes, name)
	delete(f.stacks, name)
	return &cloudformation.DeleteStackOutput{}, nil
}

func (f *fakeCloudFormation) DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	name := aws.ToString(params.StackName)
	s, ok := f.stacks[name]
	if !ok {
		return nil, notFound(name)
	}
	return &cloudformation.DescribeStacksOutput{Stacks: []cftypes.Stack{*s}}, nil
}

func (f *fakeCloudFormation) ListStacks(ctx context.Context, params *cloudformation.ListStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ListStacksOutput, error) {
	out := &cloudformation.ListStacksOutput{StackSummaries: []cftypes.StackSummary{
		{StackName: aws.String("unrelated"), StackStatus: cftypes.StackStatusCreateComplete},
		{StackName: aws.String("opensearch-old"), StackStatus: cftypes.StackStatusDeleteComplete},
	}}
	for name, s := range f.stacks {
		out.StackSummaries = append(out.StackSummaries, cftypes.StackSummary{StackName: aws.String(name), StackStatus: s.StackStatus, CreationTime: aws.Time(time.Unix(0, 0))})
	}
	return out, nil
}

type fakeS3 struct {
	bucket, key, body string
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.bucket = aws.ToString(params.Bucket)
	f.key = aws.ToString(params.Key)
	b, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = string(b)
	return &s3.PutObjectOutput{}, nil
}

func TestDeployCreatesThenUpdates(t *testing.T) {
	cf := newFake()
	d := New(cf, nil)
	ctx := context.Background()

	outputs, err := d.Deploy(ctx, "opensearch-infra-stack", "{}")
	require.NoError(t, err)
	require.Len(t, cf.creates, 1)
	require.Equal(t, "{}", aws.ToString(cf.creates[0].TemplateBody))
	require.Nil(t, cf.creates[0].TemplateURL)
	require.Contains(t, cf.creates[0].Capabilities, cftypes.CapabilityCapabilityNamedIam)
	require.NotEmpty(t, aws.ToString(cf.creates[0].ClientRequestToken))
	require.Equal(t, []Output{{Key: "loadbalancerurl", Value: "nlb.example.com", ExportName: "Loadbalancer-URL"}}, outputs)

	_, err = d.Deploy(ctx, "opensearch-infra-stack", `{"a":1}`)
	require.NoError(t, err)
	require.Len(t, cf.creates, 1)
	require.Len(t, cf.updates, 1)
	require.NotEqual(t, aws.ToString(cf.creates[0].ClientRequestToken), aws.ToString(cf.updates[0].ClientRequestToken))

	cf.noop = true
	url, err := d.OutputValue(ctx, "opensearch-infra-stack", "loadbalancerurl")
	require.NoError(t, err)
	require.Equal(t, "nlb.example.com", url)
	_, err = d.Deploy(ctx, "opensearch-infra-stack", `{"a":1}`)
	require.NoError(t, err)
	require.Len(t, cf.updates, 1)
}

func TestDeployRefusesFailedStack(t *testing.T) {
	cf := newFake()
	cf.stacks["s"] = &cftypes.Stack{StackName: aws.String("s"), StackStatus: cftypes.StackStatusRollbackComplete}
	_, err := New(cf, nil).Deploy(context.Background(), "s", "{}")
	require.ErrorIs(t, err, ErrStackFailed)
}

func TestLargeTemplate(t *testing.T) {
	body := `{"Description":"` + strings.Repeat("x", MaxTemplateBodySize) + `"}`
	_, err := New(newFake(), nil).Deploy(context.Background(), "s", body)
	require.ErrorIs(t, err, ErrTemplateTooLarge)

	cf := newFake()
	store := &fakeS3{}
	_, err = New(cf, nil, WithTemplateBucket(store, "templates", "eu-west-1")).Deploy(context.Background(), "s", body)
	require.NoError(t, err)
	require.Equal(t, "templates", store.bucket)
	require.True(t, strings.HasPrefix(store.key, "oscluster/s/"))
	require.Equal(t, body, store.body)
	require.Nil(t, cf.creates[0].TemplateBody)
	require.Equal(t, "https://templates.s3.eu-west-1.amazonaws.com/"+store.key, aws.ToString(cf.creates[0].TemplateURL))
}

func TestDestroy(t *testing.T) {
	cf := newFake()
	d := New(cf, nil)
	require.NoError(t, d.Destroy(context.Background(), "missing"))
	require.Empty(t, cf.deletes)

	_, err := d.Deploy(context.Background(), "s", "{}")
	require.NoError(t, err)
	require.NoError(t, d.Destroy(context.Background(), "s"))
	require.Equal(t, []string{"s"}, cf.deletes)
	_, err = d.Outputs(context.Background(), "s")
	require.Error(t, err)
}

func TestList(t *testing.T) {
	cf := newFake()
	d := New(cf, nil)
	_, err := d.Deploy(context.Background(), "opensearch-network-stack", "{}")
	require.NoError(t, err)
	stacks, err := d.List(context.Background(), "opensearch-")
	require.NoError(t, err)
	require.Len(t, stacks, 1)
	require.Equal(t, "opensearch-network-stack", stacks[0].Name)
	require.Equal(t, "CREATE_COMPLETE", stacks[0].Status)
}

type fakeIdentity struct {
	account *string
}

func (f fakeIdentity) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{Account: f.account}, nil
}

func TestAccountID(t *testing.T) {
	account, err := AccountID(context.Background(), fakeIdentity{account: aws.String("123456789012")})
	require.NoError(t, err)
	require.Equal(t, "123456789012", account)
	_, err = AccountID(context.Background(), fakeIdentity{})
	require.Error(t, err)
}

func TestStaticCredentialsNeedBothKeys(t *testing.T) {
	_, err := Connect(context.Background(), Auth{KeyID: "AKIA", Region: "us-east-1"})
	require.Error(t, err)
}
