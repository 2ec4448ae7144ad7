package oracle

import (
	"testing"

	"ccs-probe/server/internal/model"
)

// TestPortTableTotal 验证互补端口表的完备性。
// 场景：每一个用户意图都必须有恰好一个搭档能力，且搭档属于封闭枚举；
// 历史上出现过缺条目的表副本，这条测试挡住这类回归。
func TestPortTableTotal(t *testing.T) {
	for _, intent := range model.AllUserIntents() {
		partner, ok := Partner(intent)
		if !ok {
			t.Fatalf("intent %s has no partner capability", intent)
		}
		if !partner.Valid() {
			t.Fatalf("intent %s maps to unknown capability %q", intent, partner)
		}
	}
}

// TestPortTableInjective 验证端口表不把两个意图映到同一个能力。
// 场景：配对是一一对应的，能力被复用会让 unused 集合失真。
func TestPortTableInjective(t *testing.T) {
	seen := map[model.AppCapability]model.UserIntent{}
	for _, intent := range model.AllUserIntents() {
		partner, _ := Partner(intent)
		if other, dup := seen[partner]; dup {
			t.Fatalf("capability %s claimed by both %s and %s", partner, other, intent)
		}
		seen[partner] = intent
	}
}
