package deploycontext

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("context")
	})
}

// messages holds the user-facing error text, keyed by context key and failed tag.
var messages = map[string]string{
	"distVersion.required":      "Please provide the OS distribution version",
	"distributionUrl.required":  "distributionUrl parameter is required. Please provide the artifact url to download",
	"securityDisabled.required": "securityEnabled parameter is required to be set as - true or false",
	"securityDisabled.oneof":    "securityEnabled parameter is required to be set as - true or false",
	"minDistribution.required":  "minDistribution parameter is required to be set as - true or false",
	"minDistribution.oneof":     "minDistribution parameter is required to be set as - true or false",
	"cpuArch.required":          "cpuArch parameter is required. The provided value should be either x64 or arm64, any other value is invalid",
	"cpuArch.oneof":             "Please provide a valid cpu architecture. The valid value can be either x64 or arm64",
	"storageVolumeType.oneof":   "Invalid volume type provided, please provide any one of the following: standard, gp2, gp3, io1, io2, sc1, st1",
	"serverAccessType.oneof":    "serverAccessType must be one of: ipv4, ipv6, prefixList, securityGroupId",
	"cidr.cidrv4":               "cidr must be an IPv4 CIDR block, e.g. 10.0.0.0/16",
}

// Validate checks every field and reports the first failure.
func (c *Context) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidContext, err)
	}
	return fmt.Errorf("%w: %s", ErrInvalidContext, message(verrs[0]))
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%s must be at least %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("%s failed the %s check", fe.Field(), fe.Tag())
}
