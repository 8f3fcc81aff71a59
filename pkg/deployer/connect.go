package deployer

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Auth selects the AWS credentials and region. Static keys take precedence over Profile.
type Auth struct {
	Profile   string
	Region    string
	KeyID     string
	SecretKey string
}

// Clients are the AWS service clients used by the tool, all sharing one config.
type Clients struct {
	Region         string
	CloudFormation *cloudformation.Client
	EC2            *ec2.Client
	S3             *s3.Client
	STS            *sts.Client
}

func loadConfig(ctx context.Context, auth Auth) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{}
	switch {
	case auth.KeyID != "" && auth.SecretKey != "":
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(auth.KeyID, auth.SecretKey, "")))
	case auth.KeyID != "" || auth.SecretKey != "":
		return aws.Config{}, errors.New("both the access key id and the secret key must be set for static credentials")
	case auth.Profile != "":
		opts = append(opts, config.WithSharedConfigProfile(auth.Profile))
	}
	if auth.Region != "" {
		opts = append(opts, config.WithRegion(auth.Region))
	}
	return config.LoadDefaultConfig(ctx, opts...)
}

// Connect loads the AWS configuration and creates the service clients.
func Connect(ctx context.Context, auth Auth) (*Clients, error) {
	cfg, err := loadConfig(ctx, auth)
	if err != nil {
		return nil, fmt.Errorf("could not load AWS configuration: %w", err)
	}
	if cfg.Region == "" {
		return nil, errors.New("no AWS region configured, set --region or AWS_REGION")
	}
	return &Clients{
		Region:         cfg.Region,
		CloudFormation: cloudformation.NewFromConfig(cfg),
		EC2:            ec2.NewFromConfig(cfg),
		S3:             s3.NewFromConfig(cfg),
		STS:            sts.NewFromConfig(cfg),
	}, nil
}

// IdentityAPI is the part of STS used to resolve the account.
type IdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// AccountID returns the account of the current credentials.
func AccountID(ctx context.Context, cli IdentityAPI) (string, error) {
	result, err := cli.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}
	if result.Account == nil {
		return "", errors.New("account ID not found in caller identity response")
	}
	return *result.Account, nil
}
