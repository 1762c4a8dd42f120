package project

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func specifiers(imports []RawImport) []string {
	out := make([]string, 0, len(imports))
	for _, imp := range imports {
		out = append(out, imp.Specifier)
	}
	return out
}

func TestParseImportForms(t *testing.T) {
	src := `import React, { useState } from "react";
import type { User } from "../model/types";
import * as api from './api';
import "./side-effect.css";

export { helper } from "./lib/helper";
export * from "@/entities/user";

const lazy = import("./lazy");
const legacy = require("./legacy");
`
	p := NewImportParser(0)
	imports, errs := p.Parse(context.Background(), "widgets/header/ui/Header.ts", []byte(src))
	require.Empty(t, errs)

	assert.Equal(t, []string{
		"react",
		"../model/types",
		"./api",
		"./side-effect.css",
		"./lib/helper",
		"@/entities/user",
		"./lazy",
		"./legacy",
	}, specifiers(imports))

	require.NotEmpty(t, imports)
	assert.Equal(t, 1, imports[0].Line)
	assert.Equal(t, 1, imports[0].Column)
	assert.Equal(t, 2, imports[1].Line)
}

func TestParseTSX(t *testing.T) {
	src := `import { Button } from "@/shared/ui";

export const Header = () => (
  <header>
    <Button label="menu" />
  </header>
);
`
	p := NewImportParser(0)
	imports, errs := p.Parse(context.Background(), "widgets/header/ui/Header.tsx", []byte(src))
	require.Empty(t, errs)
	assert.Equal(t, []string{"@/shared/ui"}, specifiers(imports))
}

func TestParseJavaScript(t *testing.T) {
	src := `const utils = require("./utils");
import config from "./config";

async function load() {
  return import("./heavy");
}
`
	p := NewImportParser(0)
	imports, errs := p.Parse(context.Background(), "shared/lib/loader.js", []byte(src))
	require.Empty(t, errs)
	assert.Equal(t, []string{"./utils", "./config", "./heavy"}, specifiers(imports))
}

func TestParseSkipsNonLiteralSpecifiers(t *testing.T) {
	src := `const name = "./computed";
const a = import(name);
const b = require(name + ".ts");
const c = import(` + "`./tpl`" + `);
import real from "./real";
`
	p := NewImportParser(0)
	imports, errs := p.Parse(context.Background(), "shared/lib/dynamic.ts", []byte(src))
	require.Empty(t, errs)
	assert.Equal(t, []string{"./real"}, specifiers(imports))
}

func TestParseBrokenSourceKeepsEarlierImports(t *testing.T) {
	src := `import { a } from "./a";
)))
import { b } from "./b";
`
	p := NewImportParser(0)
	imports, errs := p.Parse(context.Background(), "features/auth/model/login.ts", []byte(src))

	require.Len(t, errs, 1)
	assert.Equal(t, "syntax error", errs[0].Message)
	assert.GreaterOrEqual(t, errs[0].Line, 1)

	assert.Contains(t, specifiers(imports), "./a")
	assert.Contains(t, specifiers(imports), "./b")
}

func TestSupportedExtensions(t *testing.T) {
	exts := SupportedExtensions()
	assert.Contains(t, exts, ".ts")
	assert.Contains(t, exts, ".tsx")
	assert.Contains(t, exts, ".js")
	for _, e := range exts {
		assert.True(t, hasSupportedExt("file"+e))
	}
	assert.False(t, hasSupportedExt("file.css"))
	assert.False(t, hasSupportedExt("file"))
}
