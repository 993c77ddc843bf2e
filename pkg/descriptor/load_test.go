package descriptor

import (
	"errors"
	"strings"
	"testing"

	"github.com/classkit/extproxy/pkg/jtype"
)

const sampleYAML = `
classes:
  - name: jakarta/ws/rs/ext/ExceptionMapper
    interface: true
    typeparams:
      - name: E
        bounds: ["Ljava/lang/Throwable;"]
    methods:
      - name: toResponse
        descriptor: (Ljava/lang/Throwable;)Ljakarta/ws/rs/core/Response;
  - name: com/acme/rest/NpeMapper
    interfaces:
      - "Ljakarta/ws/rs/ext/ExceptionMapper<Ljava/lang/NullPointerException;>;"
    annotations:
      - type: Ljakarta/ws/rs/Path;
        elements:
          - name: value
            string: boo
`

func TestParseAndBuild(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	reg, err := doc.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	mapper, err := reg.LoadClass("jakarta/ws/rs/ext/ExceptionMapper")
	if err != nil {
		t.Fatal(err)
	}
	if !mapper.Interface {
		t.Error("ExceptionMapper not marked as interface")
	}
	if len(mapper.TypeParams) != 1 || mapper.TypeParams[0].Name != "E" {
		t.Errorf("type params: got %+v", mapper.TypeParams)
	}
	if len(mapper.Methods) != 1 || mapper.Methods[0].Name != "toResponse" {
		t.Errorf("methods: got %+v", mapper.Methods)
	}

	impl, err := reg.LoadClass("com/acme/rest/NpeMapper")
	if err != nil {
		t.Fatal(err)
	}
	if len(impl.Interfaces) != 1 {
		t.Fatalf("got %d interfaces, want 1", len(impl.Interfaces))
	}
	sig, err := jtype.TypeSignature(impl.Interfaces[0])
	if err != nil {
		t.Fatal(err)
	}
	if sig != "Ljakarta/ws/rs/ext/ExceptionMapper<Ljava/lang/NullPointerException;>;" {
		t.Errorf("interface signature: got %s", sig)
	}
	if len(impl.Annotations) != 1 || impl.Annotations[0].Type != "Ljakarta/ws/rs/Path;" {
		t.Errorf("annotations: got %+v", impl.Annotations)
	}
	if impl.Annotations[0].Elements[0].Value.String != "boo" {
		t.Errorf("element: got %+v", impl.Annotations[0].Elements[0])
	}
}

func TestBuildResolvesAgainstRegistry(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	reg, err := doc.Build()
	if err != nil {
		t.Fatal(err)
	}

	impl, err := reg.LoadClass("com/acme/rest/NpeMapper")
	if err != nil {
		t.Fatal(err)
	}
	typ, err := jtype.Resolve(reg, impl, "jakarta/ws/rs/ext/ExceptionMapper")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	sig, err := jtype.TypeSignature(typ)
	if err != nil {
		t.Fatal(err)
	}
	if sig != "Ljakarta/ws/rs/ext/ExceptionMapper<Ljava/lang/NullPointerException;>;" {
		t.Errorf("got %s", sig)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no classes",
			yaml: "classes: []",
			want: "no classes declared",
		},
		{
			name: "missing class name",
			yaml: "classes:\n  - interface: true",
			want: "class name is required",
		},
		{
			name: "dotted class name",
			yaml: "classes:\n  - name: com.acme.Foo",
			want: "internal form",
		},
		{
			name: "duplicate class",
			yaml: "classes:\n  - name: t/A\n  - name: t/A",
			want: "declared twice",
		},
		{
			name: "method without descriptor",
			yaml: "classes:\n  - name: t/A\n    methods:\n      - name: m",
			want: "descriptor is required",
		},
		{
			name: "annotation type not a descriptor",
			yaml: "classes:\n  - name: t/A\n    annotations:\n      - type: jakarta/ws/rs/Path",
			want: "field descriptor",
		},
		{
			name: "element with two values",
			yaml: "classes:\n  - name: t/A\n    annotations:\n      - type: Lt/Ann;\n        elements:\n          - name: v\n            string: s\n            int: 3",
			want: "exactly one",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("got nil, want validation error")
			}
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("got %T, want ValidationError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %q, want substring %q", err.Error(), tt.want)
			}
		})
	}
}

func TestBuildReportsBadSignature(t *testing.T) {
	doc := &Document{Classes: []ClassDef{{
		Name:       "t/A",
		Interfaces: []string{"Lunterminated"},
	}}}
	_, err := doc.Build()
	if err == nil || !strings.Contains(err.Error(), "interfaces[0]") {
		t.Errorf("got %v, want error naming interfaces[0]", err)
	}
}
