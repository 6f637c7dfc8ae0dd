// Package cfnapi defines interfaces for CloudFormation operations to enable testing and mocking.
package cfnapi

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
)

// CloudFormationAPI defines the CloudFormation operations used by this module.
type CloudFormationAPI interface {
	// ValidateTemplate validates a template given either inline (TemplateBody)
	// or by reference to an S3 object (TemplateURL)
	ValidateTemplate(
		ctx context.Context,
		params *cloudformation.ValidateTemplateInput,
		optFns ...func(*cloudformation.Options),
	) (*cloudformation.ValidateTemplateOutput, error)
}

// Verify that the AWS CloudFormation client implements our interface
var _ CloudFormationAPI = (*cloudformation.Client)(nil)
