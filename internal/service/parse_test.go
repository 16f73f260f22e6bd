package service

import "testing"

func TestParsePlanFencedTrailingComma(t *testing.T) {
	text := "```json\n{\n  \"asignaciones\": [\n    {\"incidencia_id\": \"g-1\", \"usuario_id\": \"u1\"},\n    {\"incidencia_id\": \"g-2\", \"usuario_id\": \"u2\"},\n  ]\n}\n```"
	plan, ok := ParsePlan(text)
	if !ok {
		t.Fatalf("expected fenced output to parse")
	}
	if len(plan) != 2 || plan[1]["incidencia_id"] != "g-2" {
		t.Fatalf("unexpected plan %v", plan)
	}
}

func TestParsePlanShapes(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
	}{
		{"bare list", `[{"incidencia_id":"a","usuario_id":"u"}]`, 1},
		{"assignments key", `{"assignments":[{"ticket_id":"a"},{"ticket_id":"b"}]}`, 2},
		{"resultado key", `{"resultado":[{"incidencia_id":"a"}]}`, 1},
		{"plan key", `{"plan":[{"incidencia_id":"a"}]}`, 1},
		{"single object", `{"incidencia_id":"a","usuario_id":"u","fecha":"2026-10-19"}`, 1},
		{"empty list", `{"asignaciones":[]}`, 0},
		{"escaped", `{\n\t\"asignaciones\": [{\"incidencia_id\": \"a\"}]\n}`, 1},
		{"think block", "<think>quizá {\"x\": 1}</think>\n{\"asignaciones\":[{\"incidencia_id\":\"a\"}]}", 1},
		{"quoted json", `"{\"asignaciones\":[{\"incidencia_id\":\"a\"}]}"`, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, ok := ParsePlan(tc.text)
			if !ok {
				t.Fatalf("expected parse success")
			}
			if len(plan) != tc.want {
				t.Fatalf("expected %d entries, got %d: %v", tc.want, len(plan), plan)
			}
		})
	}
}

func TestParsePlanExtractsLargestObjectFromProse(t *testing.T) {
	text := `Claro, aquí tienes el plan {"nota": "ok"} y el resultado:
{"asignaciones": [{"incidencia_id": "g-1", "usuario_id": "u1", "razon": "cerca {de} otra"}], "total": 1}
Espero que sirva.`
	plan, ok := ParsePlan(text)
	if !ok || len(plan) != 1 || plan[0]["razon"] != "cerca {de} otra" {
		t.Fatalf("unexpected plan %v %v", plan, ok)
	}
}

func TestParsePlanUnparseable(t *testing.T) {
	for _, text := range []string{"", "no puedo ayudar con eso", `{"nota": "sin lista"}`, "[1, 2"} {
		if plan, ok := ParsePlan(text); ok {
			t.Fatalf("expected no plan for %q, got %v", text, plan)
		}
	}
}

func TestParsePlanKeepsEscapesInsideStrings(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		reason string
	}{
		{
			"newline in reason",
			"```json\n" + `{"asignaciones":[{"incidencia_id":"g-1","usuario_id":"u1","razon":"cerca\nde INC-002"},]}` + "\n```",
			"cerca\nde INC-002",
		},
		{
			"quotes and tab in reason",
			`{"asignaciones":[{"incidencia_id":"g-1","usuario_id":"u1","razon":"zona \"norte\"\tcerca"},]}`,
			"zona \"norte\"\tcerca",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, ok := ParsePlan(tc.text)
			if !ok || len(plan) != 1 {
				t.Fatalf("expected one assignment, got %v %v", plan, ok)
			}
			if plan[0]["razon"] != tc.reason {
				t.Fatalf("reason altered: %q", plan[0]["razon"])
			}
		})
	}
}
