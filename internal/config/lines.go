package config

// Feed keys used by JSON feeds for the three mainland carriers and the
// default line.
const (
	KeyDefault = "default"
	KeyMobile  = "CM"
	KeyTelecom = "CT"
	KeyUnicom  = "CU"
)

func DefaultLineCode(provider string) string {
	switch provider {
	case "dnspod":
		return "默认"
	default:
		return "default_view"
	}
}

// DefaultLines is the line table used when none is configured.
func DefaultLines(provider string) []LineConfig {
	switch provider {
	case "dnspod":
		return []LineConfig{
			{Name: "默认", Code: "默认", Default: true, FeedKey: KeyDefault},
			{Name: "移动", Code: "移动", FeedKey: KeyMobile},
			{Name: "电信", Code: "电信", FeedKey: KeyTelecom},
			{Name: "联通", Code: "联通", FeedKey: KeyUnicom},
		}
	default:
		return []LineConfig{
			{Name: "默认", Code: "default_view", Default: true, FeedKey: KeyDefault},
			{Name: "移动", Code: "Yidong", FeedKey: KeyMobile},
			{Name: "电信", Code: "Dianxin", FeedKey: KeyTelecom},
			{Name: "联通", Code: "Liantong", FeedKey: KeyUnicom},
		}
	}
}
