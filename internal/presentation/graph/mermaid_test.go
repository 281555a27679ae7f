package graph_test

import (
	"strings"
	"testing"

	"github.com/robotpit/pinsmith/internal/presentation/graph"
	"github.com/robotpit/pinsmith/pkg/domain"
)

func intPtr(v int) *int { return &v }

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		snap     func() *domain.Snapshot
		contains []string
		excludes []string
	}{
		{
			name: "Empty Project",
			snap: domain.NewSnapshot,
			contains: []string{
				"graph TD\n",
				`loop(("loop()"))`,
			},
			excludes: []string{"-.-> loop", "classDef"},
		},
		{
			name: "Block Shapes",
			snap: func() *domain.Snapshot {
				s := domain.NewSnapshot()
				s.Configs[34] = domain.PinConfig{Pin: 34, Kind: domain.KindSensorTemp, Label: "Temp"}
				s.Configs[5] = domain.PinConfig{Pin: 5, Kind: domain.KindLED, Label: "Status"}
				s.Blocks = []domain.Block{
					{ID: "c-1", Type: domain.BlockCondition, Condition: &domain.ConditionParams{Pin: intPtr(34), Operator: domain.OpGreater, Value: "500"}},
					{ID: "a-1", Type: domain.BlockAction, Action: &domain.ActionParams{Pin: intPtr(5), Action: domain.ActionOn}},
					{ID: "l-1", Type: domain.BlockLoop, Loop: &domain.LoopParams{Count: 3}},
					{ID: "d-1", Type: domain.BlockDelay, Delay: &domain.DelayParams{Time: 250}},
				}
				return s
			},
			contains: []string{
				`b_c_1{"if Temp > 500"}`,
				`b_a_1["Status: on"]`,
				`b_l_1[/"repeat 3x"/]`,
				`b_d_1(["wait 250 ms"])`,
				"loop --> b_c_1",
				"b_c_1 --> b_a_1",
				"b_d_1 -.-> loop",
			},
			excludes: []string{"classDef skipped"},
		},
		{
			name: "Unresolved Blocks",
			snap: func() *domain.Snapshot {
				s := domain.NewSnapshot()
				s.Blocks = []domain.Block{
					{ID: "x", Type: domain.BlockCondition, Condition: &domain.ConditionParams{Pin: intPtr(4), Operator: domain.OpEqual, Value: "1"}},
					{ID: "y", Type: domain.BlockAction, Action: &domain.ActionParams{}},
				}
				return s
			},
			contains: []string{
				`b_x{"if GPIO4 == 1"}`,
				`b_y["?: ?"]`,
				"class b_x skipped;",
				"class b_y skipped;",
			},
		},
		{
			name: "Sequences After Blocks",
			snap: func() *domain.Snapshot {
				s := domain.NewSnapshot()
				s.Configs[5] = domain.PinConfig{Pin: 5, Kind: domain.KindLED, Label: `Say "hi"`}
				s.Actions[5] = []domain.ActionStep{
					{Type: domain.ActionBlink, Params: map[string]string{"interval": "250"}},
					{Type: domain.ActionOff},
				}
				s.Blocks = []domain.Block{{ID: "d", Type: domain.BlockDelay, Delay: &domain.DelayParams{Time: 10}}}
				return s
			},
			contains: []string{
				`subgraph pin5 ["Say 'hi' - GPIO 5"]`,
				`p5_0["blink(interval=250)"]`,
				`p5_1["off"]`,
				"p5_0 --> p5_1",
				"b_d --> p5_0",
				"p5_1 -.-> loop",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.snap())
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("GenerateMermaid() = \n%v\nUnexpected substring: %v", got, unwanted)
				}
			}
		})
	}
}
