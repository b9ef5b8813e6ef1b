package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/verte-zerg/escaperoom/internal/model"
)

func TestCodeFormatAcceptsIndentedCanonicalSolution(t *testing.T) {
	solution := "function hello() {\n  console.log(\"Hello\");\n  return true;\n}"
	assert.Equal(t, Passed, Check(model.StageCodeFormat, solution, solution))
}

func TestCodeFormatHeuristic(t *testing.T) {
	solution := "function hello() {\n  return true;\n}"
	cases := []struct {
		name      string
		submitted string
		want      Verdict
	}{
		{"tab indent", "a\n\tb", Passed},
		{"two spaces", "anything\n  else", Passed},
		{"single line with spaces", "a  b", Incorrect},
		{"newline without indent", "a\nb", Incorrect},
		{"collapsed canonical", "function hello() { return true; }", Passed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Check(model.StageCodeFormat, solution, tc.submitted))
		})
	}
}

func TestDebugComparesNormalizedText(t *testing.T) {
	solution := "const sum = (a, b) => { return a + b; }"
	assert.Equal(t, Passed, Check(model.StageDebug, solution, solution))
	assert.Equal(t, Passed, Check(model.StageDebug, solution, "  const sum = (a, b) =>\n{ return   a + b; }  "))
	assert.Equal(t, Incorrect, Check(model.StageDebug, solution, "const sum = (a, b) => { return a - b; }"))
}

func TestUnknownTypeUsesTextMatch(t *testing.T) {
	assert.Equal(t, Passed, Check(model.StageType("riddle"), "open sesame", " open   sesame "))
	assert.Equal(t, Incorrect, Check(model.StageType("riddle"), "open sesame", "close"))
}

func TestGenerateNumbers(t *testing.T) {
	solution := "for (let i = 0; i <= 1000; i++) {\n  console.log(i);\n}"
	assert.Equal(t, Passed, Check(model.StageGenerateNumbers, solution, solution))
	assert.Equal(t, Passed, Check(model.StageGenerateNumbers, solution, "while (i<=1000) { i++; }"))
	assert.Equal(t, Passed, Check(model.StageGenerateNumbers, solution, "for(i=0;i<1001;i++) print(i) // 1000"))
	assert.Equal(t, Incorrect, Check(model.StageGenerateNumbers, solution, "print 1000"))
	assert.Equal(t, Incorrect, Check(model.StageGenerateNumbers, solution, "for (;;) {}"))
}

func TestDataTransform(t *testing.T) {
	solution := `[{"name":"John","age":"25","city":"NYC"},{"name":"Jane","age":"30","city":"LA"}]`

	t.Run("canonical solution passes", func(t *testing.T) {
		assert.Equal(t, Passed, Check(model.StageDataTransform, solution, solution))
	})
	t.Run("pretty printed passes", func(t *testing.T) {
		pretty := "[\n  {\"name\": \"John\", \"age\": \"25\", \"city\": \"NYC\"},\n  {\"name\": \"Jane\", \"age\": \"30\", \"city\": \"LA\"}\n]\n"
		assert.Equal(t, Passed, Check(model.StageDataTransform, solution, pretty))
	})
	t.Run("reordered keys fail", func(t *testing.T) {
		reordered := `[{"age":"25","name":"John","city":"NYC"},{"name":"Jane","age":"30","city":"LA"}]`
		assert.Equal(t, Incorrect, Check(model.StageDataTransform, solution, reordered))
	})
	t.Run("different values fail", func(t *testing.T) {
		other := `[{"name":"John","age":25,"city":"NYC"},{"name":"Jane","age":"30","city":"LA"}]`
		assert.Equal(t, Incorrect, Check(model.StageDataTransform, solution, other))
	})
	t.Run("invalid json is malformed", func(t *testing.T) {
		for _, bad := range []string{"", "name,age\nJohn,25", `[{"name":"John",}]`, `[1] [2]`} {
			v := Check(model.StageDataTransform, solution, bad)
			assert.Equal(t, MalformedJSON, v, "input %q", bad)
			assert.Contains(t, v.Message(), "JSON")
		}
	})
}

func TestCanonicalSolutionsPassTheirOwnCheck(t *testing.T) {
	stages := []model.Stage{
		{Type: model.StageCodeFormat, Solution: "function hello() {\n  console.log(\"Hello\");\n  return true;\n}"},
		{Type: model.StageDebug, Solution: "const sum = (a, b) => { return a + b; }"},
		{Type: model.StageGenerateNumbers, Solution: "for (let i = 0; i <= 1000; i++) {\n  console.log(i);\n}"},
		{Type: model.StageDataTransform, Solution: `{"a":[1,2.50,{"b":null,"c":true}],"d":"A"}`},
		{Type: model.StageCodeFormat, Solution: "x=1"},
		{Type: model.StageGenerateNumbers, Solution: "seq 0 999"},
	}
	for _, st := range stages {
		assert.True(t, CheckStage(st, st.Solution).Passed(), "%s: %q", st.Type, st.Solution)
	}
}

func TestCanonicalJSON(t *testing.T) {
	cases := map[string]string{
		`{ "b" : 1.0, "a" : [ 1e2, -0, 0.000001 ] }`: `{"b":1,"a":[100,0,0.000001]}`,
		`"A<b>"`:                                `"A<b>"`,
		`  null `:                                    `null`,
		`[true,false]`:                               `[true,false]`,
		`1e21`:                                       `1e+21`,
		`{"a":1,"b":2,"a":3}`:                        `{"a":3,"b":2}`,
		`{"b":1,"10":2,"2":3,"01":4}`:                `{"2":3,"10":2,"b":1,"01":4}`,
		`{"x":{"k":1,"k":{"n":0}}}`:                  `{"x":{"k":{"n":0}}}`,
	}
	for in, want := range cases {
		got, err := canonicalJSON(in)
		if assert.NoError(t, err, in) {
			assert.Equal(t, want, got, in)
		}
	}
}

func TestVerdictMessagesDiffer(t *testing.T) {
	assert.NotEqual(t, Incorrect.Message(), MalformedJSON.Message())
	assert.Equal(t, "malformed-json", MalformedJSON.String())
	assert.False(t, Incorrect.Passed())
}
