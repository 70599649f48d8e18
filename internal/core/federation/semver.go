package federation

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ============================================================================
//                              版本范围
// ============================================================================

// Range 共享依赖的版本范围
//
// 语法由 github.com/Masterminds/semver/v3 的 Constraints 解析，常见写法：
//
//	x  *  ""              任意版本
//	1.2.3  =1.2.3         精确版本
//	1  1.x  1.2.x         通配
//	^1.2.3  ~1.2.3        兼容 / 近似
//	>=1.2.0 <2.0.0        比较符组合（与）
//	1.2.3 - 2.0.0         连字符范围
//	^17.0.0 || ^18.0.0    多个备选（或）
//
// 预发布版本只有在范围本身带预发布标记时才可能匹配。
type Range struct {
	raw string
	c   *semver.Constraints
}

// ParseRange 解析版本范围
func ParseRange(s string) (Range, error) {
	raw := strings.TrimSpace(s)
	expr := raw
	if expr == "" {
		expr = "*"
	}
	c, err := semver.NewConstraint(expr)
	if err != nil {
		return Range{}, fmt.Errorf("%w %q: %v", ErrInvalidRange, s, err)
	}
	return Range{raw: raw, c: c}, nil
}

// String 返回原始写法
func (r Range) String() string {
	if r.raw == "" {
		return "*"
	}
	return r.raw
}

// Match 判断版本是否落在范围内；无效版本恒为 false
func (r Range) Match(version string) bool {
	v, ok := parseVersion(version)
	if !ok {
		return false
	}
	if r.c == nil {
		return v.Prerelease() == ""
	}
	return r.c.Check(v)
}

// ValidVersion 判断是否为完整的语义化版本
func ValidVersion(version string) bool {
	_, ok := parseVersion(version)
	return ok
}

// CompareVersions 比较两个版本，无效版本排在所有有效版本之前
func CompareVersions(a, b string) int {
	va, okA := parseVersion(a)
	vb, okB := parseVersion(b)
	switch {
	case okA && okB:
		return va.Compare(vb)
	case okA:
		return 1
	case okB:
		return -1
	}
	return 0
}

// parseVersion 要求 major.minor.patch 三段齐全，前导 "v" 可有可无
func parseVersion(version string) (*semver.Version, bool) {
	v, err := semver.StrictNewVersion(strings.TrimPrefix(strings.TrimSpace(version), "v"))
	if err != nil {
		return nil, false
	}
	return v, true
}
