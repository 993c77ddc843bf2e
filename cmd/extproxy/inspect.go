package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/classkit/extproxy/pkg/classfile"
	"github.com/classkit/extproxy/pkg/jtype"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.class>",
	Short: "Print the shape of a generated class file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cf, err := classfile.ParseFile(args[0])
		if err != nil {
			return err
		}

		name, err := cf.ClassName()
		if err != nil {
			return err
		}
		ifaces, err := cf.InterfaceNames()
		if err != nil {
			return err
		}

		fmt.Printf("class:      %s\n", name)
		fmt.Printf("version:    %d.%d\n", cf.MajorVersion, cf.MinorVersion)
		fmt.Printf("super:      %s\n", cf.SuperClassName())
		fmt.Printf("interfaces: %s\n", strings.Join(ifaces, ", "))
		if sig, ok := cf.Signature(); ok {
			fmt.Printf("signature:  %s\n", sig)
		}

		if data, ok := cf.Attribute(classfile.RuntimeVisibleAnnotations); ok {
			anns, err := classfile.DecodeAnnotations(cf.ConstantPool, data)
			if err != nil {
				return err
			}
			for _, a := range anns {
				fmt.Printf("annotation: %s\n", formatAnnotation(&a))
			}
		}

		for _, m := range cf.Methods {
			fmt.Printf("method:     %s%s\n", m.Name, m.Descriptor)
		}
		return nil
	},
}

func formatAnnotation(a *jtype.Annotation) string {
	var sb strings.Builder
	sb.WriteString(a.Type)
	if len(a.Elements) == 0 {
		return sb.String()
	}
	sb.WriteByte('(')
	for i, el := range a.Elements {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(el.Name)
		sb.WriteByte('=')
		sb.WriteString(formatElementValue(&el.Value))
	}
	sb.WriteByte(')')
	return sb.String()
}

func formatElementValue(v *jtype.ElementValue) string {
	switch v.Tag {
	case jtype.TagString:
		return fmt.Sprintf("%q", v.String)
	case jtype.TagBoolean:
		if v.Int != 0 {
			return "true"
		}
		return "false"
	case jtype.TagByte, jtype.TagChar, jtype.TagInt, jtype.TagLong, jtype.TagShort:
		return fmt.Sprintf("%d", v.Int)
	case jtype.TagFloat, jtype.TagDouble:
		return fmt.Sprintf("%g", v.Float)
	case jtype.TagClass:
		return v.String
	case jtype.TagEnum:
		return v.EnumType + "." + v.String
	case jtype.TagArray:
		parts := make([]string, len(v.Array))
		for i := range v.Array {
			parts[i] = formatElementValue(&v.Array[i])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case jtype.TagAnnotation:
		return formatAnnotation(v.Nested)
	}
	return fmt.Sprintf("<tag %c>", v.Tag)
}
