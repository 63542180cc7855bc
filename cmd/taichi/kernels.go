package main

import (
	"github.com/weiplanet/taichi/internal/codegen"
)

// Demo kernels use a single void* argument laid out as a double array:
// [n, a, x[0..n), y[0..n)]. The exported symbol name comes from the
// generator so it always matches what the loader resolves.

// emitAxpyKernel fills g with y[i] = a*x[i] + y[i].
func emitAxpyKernel(g *codegen.Generator) {
	g.WithRegion(codegen.RegionHeader, func() {
		g.Emit("#include <stddef.h>")
	})
	g.WithRegion(codegen.RegionExteriorLoopBegin, func() {
		g.Emit("void %s(void *ctx_) {", g.FuncName())
		g.Emit("double *ctx = (double *)ctx_;")
		g.Emit("long n = (long)ctx[0];")
		g.Emit("double a = ctx[1];")
		g.Emit("double *x = ctx + 2;")
		g.Emit("double *y = ctx + 2 + n;")
	})
	g.WithRegion(codegen.RegionInteriorLoopBegin, func() {
		g.Emit("for (long i = 0; i < n; i++) {")
	})
	g.WithRegion(codegen.RegionBody, func() {
		g.Emit("y[i] = a * x[i] + y[i];")
	})
	g.WithRegion(codegen.RegionInteriorLoopEnd, func() {
		g.Emit("}")
	})
	g.WithRegion(codegen.RegionExteriorLoopEnd, func() {
		g.Emit("}")
	})
}

// emitScaleKernel fills g with y[i] = factor * x[i].
func emitScaleKernel(g *codegen.Generator, factor float64) {
	g.WithRegion(codegen.RegionHeader, func() {
		g.Emit("#include <stddef.h>")
	})
	g.WithRegion(codegen.RegionExteriorLoopBegin, func() {
		g.Emit("void %s(void *ctx_) {", g.FuncName())
		g.Emit("double *ctx = (double *)ctx_;")
		g.Emit("long n = (long)ctx[0];")
		g.Emit("double *x = ctx + 2;")
		g.Emit("double *y = ctx + 2 + n;")
	})
	g.WithRegion(codegen.RegionInteriorLoopBegin, func() {
		g.Emit("for (long i = 0; i < n; i++) {")
	})
	g.WithRegion(codegen.RegionBody, func() {
		g.Emit("y[i] = %v * x[i];", factor)
	})
	g.WithRegion(codegen.RegionInteriorLoopEnd, func() {
		g.Emit("}")
	})
	g.WithRegion(codegen.RegionExteriorLoopEnd, func() {
		g.Emit("}")
	})
}
