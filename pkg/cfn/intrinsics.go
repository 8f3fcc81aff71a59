package cfn

// Pseudo parameters.
const (
	AccountID = "AWS::AccountId"
	Region    = "AWS::Region"
	StackName = "AWS::StackName"
	NoValue   = "AWS::NoValue"
)

func Ref(logicalID string) map[string]any {
	return map[string]any{"Ref": logicalID}
}

func GetAtt(logicalID string, attribute string) map[string]any {
	return map[string]any{"Fn::GetAtt": []string{logicalID, attribute}}
}

func Sub(text string) map[string]any {
	return map[string]any{"Fn::Sub": text}
}

func ImportValue(exportName any) map[string]any {
	return map[string]any{"Fn::ImportValue": exportName}
}

func Join(delimiter string, values ...any) map[string]any {
	return map[string]any{"Fn::Join": []any{delimiter, values}}
}

func Split(delimiter string, source any) map[string]any {
	return map[string]any{"Fn::Split": []any{delimiter, source}}
}

func Select(index int, list any) map[string]any {
	return map[string]any{"Fn::Select": []any{index, list}}
}

// GetAZs lists the availability zones of the stack's region.
func GetAZs() map[string]any {
	return map[string]any{"Fn::GetAZs": ""}
}

func Base64(value any) map[string]any {
	return map[string]any{"Fn::Base64": value}
}

// Cidr splits ipBlock into count blocks with cidrBits host bits each.
func Cidr(ipBlock any, count int, cidrBits int) map[string]any {
	return map[string]any{"Fn::Cidr": []any{ipBlock, count, cidrBits}}
}
