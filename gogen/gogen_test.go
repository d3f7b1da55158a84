package gogen

import (
	"strings"
	"testing"

	"github.com/chazu/hoist/lift"
)

func transform(t *testing.T, root, body string) *lift.Result {
	t.Helper()
	res, err := lift.Transform(lift.Scope{Root: root, Body: body}, lift.Options{})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	return res
}

const metaBody = `
on_tick = _fn(void, (int ms), { advance(ms); });
on_key = _cl(void, (int code), (int fd, char *name), {
    send(_env->fd, code);
});
`

func TestGenerate(t *testing.T) {
	res := transform(t, "Evt", metaBody)
	src, err := Generate("evtmeta", res, GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, want := range []string{
		"// Code generated by hoist. DO NOT EDIT.",
		"package evtmeta",
		"const EvtHash = ",
		"var EvtDefinitions = []Definition{",
		`Name: "Evt_fn1"`,
		`Name: "Evt_fn2"`,
		"var EvtFn2Env = EnvLayout{",
		`TypeName: "Evt_fn2_env"`,
		"Size: 24",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("output missing %q:\n%s", want, src)
		}
	}

	// The plain definition gets no layout var.
	if strings.Contains(src, "EvtFn1Env") {
		t.Error("layout emitted for a plain function")
	}
}

func TestGenerateDeterministic(t *testing.T) {
	run := func() string {
		src, err := Generate("evtmeta", transform(t, "Det", metaBody), GenerateOptions{})
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		return src
	}
	if a, b := run(), run(); a != b {
		t.Errorf("output not deterministic:\n--- first\n%s\n--- second\n%s", a, b)
	}
}

func TestValidatorCatchesBadSource(t *testing.T) {
	v := NewValidator("bad.go")

	if errs := v.Validate("package x\n\nfunc {"); len(errs) == 0 {
		t.Error("parse error not reported")
	}
	if errs := v.Validate("package x\n\nvar a int = \"s\"\n"); len(errs) == 0 {
		t.Error("type error not reported")
	}
	if errs := v.Validate("package x\n\nvar a = 1\n"); len(errs) != 0 {
		t.Errorf("valid source rejected: %v", errs)
	}
}

func TestGoName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Evt_fn1", "EvtFn1"},
		{"Evt_fn1_env", "EvtFn1Env"},
		{"Evt", "Evt"},
		{"", ""},
	}
	for _, c := range cases {
		if got := GoName(c.in); got != c.want {
			t.Errorf("GoName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPackageName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Evt-Meta", "evtmeta"},
		{"evtmeta", "evtmeta"},
		{"9lives", "p9lives"},
		{"---", "hoistmeta"},
	}
	for _, c := range cases {
		if got := PackageName(c.in); got != c.want {
			t.Errorf("PackageName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
