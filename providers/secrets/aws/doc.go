// Package aws provides an AWS Secrets Manager root secret source for idguard.
//
// # Basic Usage
//
//	import (
//	    "github.com/hengadev/idguard"
//	    awssecrets "github.com/hengadev/idguard/providers/secrets/aws"
//	)
//
//	src, err := awssecrets.NewSecretsManagerSource(ctx, awssecrets.Config{
//	    Alias:  "patient-portal",
//	    Region: "af-south-1",
//	})
//	if err != nil {
//	    // handle error
//	}
//	guard, err := idguard.NewFromSource(ctx, idguard.PatientProfile(), src)
//
// # Secret Naming
//
// The root secret is stored base64 encoded as the secret string of:
//
//	idguard/{alias}/root-secret
//
// # IAM Permissions
//
//	{
//	    "Effect": "Allow",
//	    "Action": [
//	        "secretsmanager:GetSecretValue",
//	        "secretsmanager:DescribeSecret",
//	        "secretsmanager:CreateSecret",
//	        "secretsmanager:PutSecretValue"
//	    ],
//	    "Resource": "arn:aws:secretsmanager:*:*:secret:idguard/*"
//	}
//
// Only GetSecretValue is needed at runtime; the other actions are used when
// provisioning the secret with StoreRootSecret.
package aws
