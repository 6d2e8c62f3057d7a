package actions

import (
	"context"
	"errors"
	"testing"

	"github.com/entrhq/forge-playwright/pkg/mcpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionTool_Metadata(t *testing.T) {
	a := newAdapter(t, &spyInvoker{}, Options{})
	tools := a.Tools()
	require.Len(t, tools, len(Kinds)+2)
	assert.Equal(t, "browser_wait_for_selector", tools[len(Kinds)].Name())
	assert.Equal(t, "browser_evaluate", tools[len(Kinds)+1].Name())

	tool, err := NewActionTool(a, KindType)
	require.NoError(t, err)
	assert.Equal(t, "browser_type", tool.Name())
	assert.False(t, tool.IsLoopBreaking())

	schema := tool.Schema()
	assert.Equal(t, []string{"selector", "text"}, schema["required"])
	props := schema["properties"].(map[string]interface{})
	assert.Contains(t, props, "selector")
	assert.Contains(t, props, "text")
	assert.NotContains(t, props, "url")

	_, err = NewActionTool(a, "HOVER")
	assert.Error(t, err)
}

func TestActionTool_Execute(t *testing.T) {
	spy := &spyInvoker{}
	a := newAdapter(t, spy, Options{})
	tool, err := NewActionTool(a, KindNavigate)
	require.NoError(t, err)

	out, meta, err := tool.Execute(context.Background(), []byte(
		`<arguments><url>https://example.com/?a=1&b=2</url><wait_until>networkidle</wait_until></arguments>`))

	require.NoError(t, err)
	assert.Equal(t, "Navigated to https://example.com/?a=1&b=2", out)
	assert.Equal(t, true, meta["success"])
	require.Equal(t, 1, spy.count())
	assert.Equal(t, "networkidle", spy.calls[0].args["waitUntil"])
}

func TestActionTool_ExecuteInvalid(t *testing.T) {
	spy := &spyInvoker{}
	a := newAdapter(t, spy, Options{})
	tool, err := NewActionTool(a, KindSelect)
	require.NoError(t, err)

	_, meta, err := tool.Execute(context.Background(), []byte(`<arguments><selector>#c</selector></arguments>`))

	require.Error(t, err)
	assert.Equal(t, "Select failed: need a valid value", err.Error())
	assert.Equal(t, "Invalid SELECT content", meta["error"])
	assert.Zero(t, spy.count())
}

func TestWaitTool(t *testing.T) {
	spy := &spyInvoker{}
	tool := &WaitTool{adapter: newAdapter(t, spy, Options{})}

	out, meta, err := tool.Execute(context.Background(), []byte(`<arguments><selector>#results</selector><timeout>1500</timeout></arguments>`))
	require.NoError(t, err)
	assert.Equal(t, "Element #results is present", out)
	assert.Equal(t, true, meta["success"])
	require.Equal(t, 1, spy.count())
	assert.Equal(t, "wait-for-selector", spy.calls[0].tool)
	assert.Equal(t, int64(1500), spy.calls[0].args["timeout"])

	_, _, err = tool.Execute(context.Background(), []byte(`<arguments><selector> </selector></arguments>`))
	assert.EqualError(t, err, "need a valid selector")
	_, _, err = tool.Execute(context.Background(), []byte(`<arguments><selector>#x</selector><timeout>-1</timeout></arguments>`))
	assert.Error(t, err)
	assert.Equal(t, 1, spy.count())
}

func TestEvaluateTool(t *testing.T) {
	spy := &spyInvoker{result: &mcpclient.Result{Text: `{"links":3}`}}
	tool := &EvaluateTool{adapter: newAdapter(t, spy, Options{})}

	out, meta, err := tool.Execute(context.Background(),
		[]byte(`<arguments><script><![CDATA[() => ({links: document.querySelectorAll('a').length})]]></script></arguments>`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"links":3}`, out)
	assert.Equal(t, map[string]any{"links": float64(3)}, meta["result"])
	require.Equal(t, 1, spy.count())
	assert.Equal(t, "evaluate", spy.calls[0].tool)
	assert.Equal(t, "() => ({links: document.querySelectorAll('a').length})", spy.calls[0].args["script"])

	failing := &EvaluateTool{adapter: newAdapter(t, &spyInvoker{err: errors.New("ReferenceError")}, Options{})}
	_, meta, err = failing.Execute(context.Background(), []byte(`<arguments><script>nope</script></arguments>`))
	assert.ErrorContains(t, err, "ReferenceError")
	assert.Equal(t, "ReferenceError", meta["error"])
}
