package pyuc

import (
	"errors"
	"os"

	"github.com/go-python/gpython/py"

	"github.com/ucoord-systems/go-ucoord/libuc"
	"github.com/ucoord-systems/go-ucoord/libuc/catalog"
	"github.com/ucoord-systems/go-ucoord/ucoord"
)

var (
	LIB_VERSION = "v1.2026.1"
)

var (
	pyUCIntType     = py.NewType("UCInt", "an integer in universal (prime) coordinates")
	pyCatalogType   = py.NewType("Catalog", "ucoord.Catalog")
	pyWorkspaceType = py.NewType("Workspace", "collects active session resources and catalogs")
)

type pyUCInt struct {
	*libuc.UCInt
}

func (z pyUCInt) Type() *py.Type {
	return pyUCIntType
}

func (z pyUCInt) M__str__() (py.Object, error) {
	return py.String(z.String()), nil
}

func (z pyUCInt) M__repr__() (py.Object, error) {
	return z.M__str__()
}

const (
	READ_ONLY = 0x01

	kWorkspaceAttr = "_Workspace"
)

type Workspace struct {
	CatalogCtx ucoord.CatalogContext
	Engine     *libuc.Engine
}

func (ws *Workspace) Close() {
	ws.CatalogCtx.Close()
	<-ws.CatalogCtx.Done()
}

func (ws *Workspace) Type() *py.Type {
	return pyWorkspaceType
}

func py_GetWorkspace(module py.Object, args py.Tuple) (py.Object, error) {
	wsObj, _ := py.GetAttrString(module, kWorkspaceAttr)
	if wsObj == nil {
		ws := &Workspace{
			CatalogCtx: ucoord.NewCatalogContext(),
			Engine:     libuc.NewEngine(libuc.EngineOpts{}),
		}
		wsObj = ws
		py.SetAttrString(module, kWorkspaceAttr, wsObj)
	}
	return wsObj, nil
}

func getWorkspace(module py.Object) (*Workspace, error) {
	wsObj, err := py_GetWorkspace(module, nil)
	if err != nil {
		return nil, err
	}
	return wsObj.(*Workspace), nil
}

// coerceUCInt accepts a UCInt object, a python int, or a coordinate
// expression string.
func coerceUCInt(en *libuc.Engine, obj py.Object) (*libuc.UCInt, error) {
	switch v := obj.(type) {
	case pyUCInt:
		return v.UCInt, nil
	case py.Int:
		return en.FromInt64(int64(v)), nil
	case py.String:
		z, err := en.FromString(string(v), 0)
		if err != nil {
			return nil, py.ExceptionNewf(py.ValueError, "%v", err)
		}
		return z, nil
	}
	return nil, py.ExceptionNewf(py.TypeError, "expected UCInt, int, or str (got %v)", obj.Type().Name)
}

func moduleEngine(module py.Object) (*libuc.Engine, error) {
	ws, err := getWorkspace(module)
	if err != nil {
		return nil, err
	}
	return ws.Engine, nil
}

func py_NewUCInt(module py.Object, args py.Tuple) (py.Object, error) {
	en, err := moduleEngine(module)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return py.Object(pyUCInt{en.Zero()}), nil
	}
	z, err := coerceUCInt(en, args[0])
	if err != nil {
		return nil, err
	}
	return py.Object(pyUCInt{z}), nil
}

func py_IsPrime(module py.Object, args py.Tuple) (py.Object, error) {
	en, err := moduleEngine(module)
	if err != nil {
		return nil, err
	}
	z, err := coerceUCInt(en, args[0])
	if err != nil {
		return nil, err
	}
	v := z.ToBig()
	if v.Sign() <= 0 {
		return py.False, nil
	}
	if en.IsPrime(v) {
		return py.True, nil
	}
	return py.False, nil
}

func py_UCInt_Factors(self py.Object, args py.Tuple) (py.Object, error) {
	z := self.(pyUCInt)
	fz := z.GetFactorization()

	terms := make(py.Tuple, 0, len(fz.Factors)+1)
	for _, Fi := range fz.Factors {
		pair := py.Tuple{py.String(Fi.Prime.String()), py.Int(Fi.Exp)}
		terms = append(terms, pair)
	}
	if !fz.Complete {
		pair := py.Tuple{py.String(fz.Remaining.String()), py.Int(0)}
		terms = append(terms, pair)
	}
	return py.Object(terms), nil
}

func py_UCInt_Sign(self py.Object, args py.Tuple) (py.Object, error) {
	z := self.(pyUCInt)
	return py.Int(z.Sign()), nil
}

func py_UCInt_ToInt(self py.Object, args py.Tuple) (py.Object, error) {
	z := self.(pyUCInt)
	v, ok := z.Int64()
	if !ok {
		return nil, py.ExceptionNewf(py.OverflowError, "%v", errors.New("value exceeds int64"))
	}
	return py.Int(v), nil
}

func py_UCInt_ToString(self py.Object, args py.Tuple) (py.Object, error) {
	z := self.(pyUCInt)
	base := 10
	if len(args) > 0 {
		b, err := py.GetInt(args[0])
		if err != nil {
			return nil, err
		}
		base = int(b)
	}
	if base < 2 || base > 62 {
		return nil, py.ExceptionNewf(py.ValueError, "base must be in [2,62] (got %d)", base)
	}
	return py.String(z.Text(base)), nil
}

func py_UCInt_IsPrime(self py.Object, args py.Tuple) (py.Object, error) {
	z := self.(pyUCInt)
	if z.IsIntrinsicPrime() {
		return py.True, nil
	}
	return py.False, nil
}

func ucBinaryOp(
	self py.Object,
	args py.Tuple,
	op func(a, b *libuc.UCInt) (*libuc.UCInt, error),
) (py.Object, error) {
	z := self.(pyUCInt)
	if len(args) == 0 {
		return nil, py.ExceptionNewf(py.TypeError, "%v", errors.New("missing operand"))
	}
	y, err := coerceUCInt(z.Engine(), args[0])
	if err != nil {
		return nil, err
	}
	out, err := op(z.UCInt, y)
	if err != nil {
		return nil, py.ExceptionNewf(py.ArithmeticError, "%v", err)
	}
	return py.Object(pyUCInt{out}), nil
}

func py_UCInt_Mul(self py.Object, args py.Tuple) (py.Object, error) {
	return ucBinaryOp(self, args, func(a, b *libuc.UCInt) (*libuc.UCInt, error) {
		return a.Mul(b), nil
	})
}

func py_UCInt_Div(self py.Object, args py.Tuple) (py.Object, error) {
	return ucBinaryOp(self, args, func(a, b *libuc.UCInt) (*libuc.UCInt, error) {
		return a.Div(b)
	})
}

func py_UCInt_Add(self py.Object, args py.Tuple) (py.Object, error) {
	return ucBinaryOp(self, args, func(a, b *libuc.UCInt) (*libuc.UCInt, error) {
		return a.Add(b), nil
	})
}

func py_UCInt_Sub(self py.Object, args py.Tuple) (py.Object, error) {
	return ucBinaryOp(self, args, func(a, b *libuc.UCInt) (*libuc.UCInt, error) {
		return a.Sub(b), nil
	})
}

func py_UCInt_Gcd(self py.Object, args py.Tuple) (py.Object, error) {
	return ucBinaryOp(self, args, func(a, b *libuc.UCInt) (*libuc.UCInt, error) {
		return a.GCD(b)
	})
}

func py_UCInt_Lcm(self py.Object, args py.Tuple) (py.Object, error) {
	return ucBinaryOp(self, args, func(a, b *libuc.UCInt) (*libuc.UCInt, error) {
		return a.LCM(b)
	})
}

func py_UCInt_Mod(self py.Object, args py.Tuple) (py.Object, error) {
	return ucBinaryOp(self, args, func(a, b *libuc.UCInt) (*libuc.UCInt, error) {
		return a.Mod(b)
	})
}

func py_UCInt_Pow(self py.Object, args py.Tuple) (py.Object, error) {
	z := self.(pyUCInt)
	e, err := py.GetInt(args[0])
	if err != nil {
		return nil, err
	}
	out, err := z.Pow(int64(e))
	if err != nil {
		return nil, py.ExceptionNewf(py.ArithmeticError, "%v", err)
	}
	return py.Object(pyUCInt{out}), nil
}

func py_UCInt_Neg(self py.Object, args py.Tuple) (py.Object, error) {
	z := self.(pyUCInt)
	return py.Object(pyUCInt{z.Neg()}), nil
}

func py_UCInt_Abs(self py.Object, args py.Tuple) (py.Object, error) {
	z := self.(pyUCInt)
	return py.Object(pyUCInt{z.Abs()}), nil
}

func py_UCInt_Radical(self py.Object, args py.Tuple) (py.Object, error) {
	z := self.(pyUCInt)
	out, err := z.Radical()
	if err != nil {
		return nil, py.ExceptionNewf(py.ArithmeticError, "%v", err)
	}
	return py.Object(pyUCInt{out}), nil
}

func py_UCInt_Cmp(self py.Object, args py.Tuple) (py.Object, error) {
	z := self.(pyUCInt)
	y, err := coerceUCInt(z.Engine(), args[0])
	if err != nil {
		return nil, err
	}
	return py.Int(z.Cmp(y)), nil
}

func py_Workspace_CatalogExists(self py.Object, args py.Tuple) (py.Object, error) {
	_ = self.(*Workspace)

	var pathname string
	err := py.LoadTuple(args, []interface{}{&pathname})
	if err != nil {
		return nil, err
	}
	_, err = os.Stat(pathname)
	if os.IsNotExist(err) {
		return py.False, nil
	}
	return py.True, nil
}

func py_Workspace_OpenCatalog(self py.Object, args py.Tuple) (py.Object, error) {
	ws := self.(*Workspace)

	var pathname string
	var flags int32
	err := py.LoadTuple(args, []interface{}{&pathname, &flags})
	if err != nil {
		return nil, err
	}

	opts := ucoord.CatalogOpts{
		ReadOnly:   (flags & READ_ONLY) != 0,
		DbPathName: pathname,
	}

	cat, err := catalog.OpenCatalog(ws.CatalogCtx, opts)
	if err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}

	pyCat := pyCatalog{cat}
	return py.Object(pyCat), nil
}

// SaveCache persists the engine's factorization cache into a catalog.
func py_Workspace_SaveCache(self py.Object, args py.Tuple) (py.Object, error) {
	ws := self.(*Workspace)
	cat, err := getCatalogFromObj(args[0])
	if err != nil {
		return nil, err
	}
	if cat.IsReadOnly() {
		return nil, py.ExceptionNewf(py.PermissionError, "%v", errors.New("catalog is in read-only mode"))
	}

	cache := ws.Engine.FactorCache()
	cache.SetPersistence(cat.Catalog)
	if err := cache.SaveToStorage(); err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return py.Int(cache.Size()), nil
}

// LoadCache warms the engine's factorization cache from a catalog.
func py_Workspace_LoadCache(self py.Object, args py.Tuple) (py.Object, error) {
	ws := self.(*Workspace)
	cat, err := getCatalogFromObj(args[0])
	if err != nil {
		return nil, err
	}

	cache := ws.Engine.FactorCache()
	cache.SetPersistence(cat.Catalog)
	if err := cache.LoadFromStorage(); err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return py.Int(cache.Size()), nil
}

func getCatalogFromObj(obj py.Object) (pyCatalog, error) {
	if cat, ok := obj.(pyCatalog); ok {
		return cat, nil
	}
	attr, err := py.GetAttrString(obj, "_cat")
	if err != nil {
		return pyCatalog{}, err
	}
	return attr.(pyCatalog), nil
}

type pyCatalog struct {
	ucoord.Catalog
}

func (cat pyCatalog) Type() *py.Type {
	return pyCatalogType
}

func py_Catalog_Close(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	if cat.Catalog != nil {
		cat.Close()
	}
	return py.None, nil
}

func py_Catalog_NumEntries(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	return py.Int(cat.NumEntries()), nil
}

func init() {

	/////////////////////////////////
	// UCInt
	{
		pyUCIntType.Dict["Factors"] = py.MustNewMethod("Factors", py_UCInt_Factors, 0, "exports the prime coordinates as ((prime, exp), ...) tuples")
		pyUCIntType.Dict["Sign"] = py.MustNewMethod("Sign", py_UCInt_Sign, 0, "")
		pyUCIntType.Dict["ToInt"] = py.MustNewMethod("ToInt", py_UCInt_ToInt, 0, "")
		pyUCIntType.Dict["ToString"] = py.MustNewMethod("ToString", py_UCInt_ToString, 0, "renders the plain integer value in a given base")
		pyUCIntType.Dict["IsPrime"] = py.MustNewMethod("IsPrime", py_UCInt_IsPrime, 0, "")
		pyUCIntType.Dict["Mul"] = py.MustNewMethod("Mul", py_UCInt_Mul, 0, "")
		pyUCIntType.Dict["Div"] = py.MustNewMethod("Div", py_UCInt_Div, 0, "")
		pyUCIntType.Dict["Add"] = py.MustNewMethod("Add", py_UCInt_Add, 0, "")
		pyUCIntType.Dict["Sub"] = py.MustNewMethod("Sub", py_UCInt_Sub, 0, "")
		pyUCIntType.Dict["Pow"] = py.MustNewMethod("Pow", py_UCInt_Pow, 0, "")
		pyUCIntType.Dict["Gcd"] = py.MustNewMethod("Gcd", py_UCInt_Gcd, 0, "")
		pyUCIntType.Dict["Lcm"] = py.MustNewMethod("Lcm", py_UCInt_Lcm, 0, "")
		pyUCIntType.Dict["Mod"] = py.MustNewMethod("Mod", py_UCInt_Mod, 0, "")
		pyUCIntType.Dict["Neg"] = py.MustNewMethod("Neg", py_UCInt_Neg, 0, "")
		pyUCIntType.Dict["Abs"] = py.MustNewMethod("Abs", py_UCInt_Abs, 0, "")
		pyUCIntType.Dict["Radical"] = py.MustNewMethod("Radical", py_UCInt_Radical, 0, "")
		pyUCIntType.Dict["Cmp"] = py.MustNewMethod("Cmp", py_UCInt_Cmp, 0, "")
	}

	/////////////////////////////////
	// Catalog
	{
		pyCatalogType.Dict["NumEntries"] = py.MustNewMethod("NumEntries", py_Catalog_NumEntries, 0, "")
		pyCatalogType.Dict["Close"] = py.MustNewMethod("Close", py_Catalog_Close, 0, "")
	}

	/////////////////////////////////
	// Workspace
	{
		pyWorkspaceType.Dict["OpenCatalog"] = py.MustNewMethod("OpenCatalog", py_Workspace_OpenCatalog, 0, "")
		pyWorkspaceType.Dict["CatalogExists"] = py.MustNewMethod("CatalogExists", py_Workspace_CatalogExists, 0, "")
		pyWorkspaceType.Dict["SaveCache"] = py.MustNewMethod("SaveCache", py_Workspace_SaveCache, 0, "")
		pyWorkspaceType.Dict["LoadCache"] = py.MustNewMethod("LoadCache", py_Workspace_LoadCache, 0, "")
	}

	{
		methods := []*py.Method{
			py.MustNewMethod("UCInt", py_NewUCInt, 0, ""),
			py.MustNewMethod("IsPrime", py_IsPrime, 0, ""),
			py.MustNewMethod("GetWorkspace", py_GetWorkspace, 0, ""),
		}

		globals := py.StringDict{
			"LIB_VERSION": py.String(LIB_VERSION),
			"PY_VERSION":  py.String("v3.4.0"),
		}

		py.RegisterModule(&py.ModuleImpl{
			Info: py.ModuleInfo{
				Name: "_ucoord",
				Doc:  "universal coordinates arithmetic gpython module",
			},
			Methods: methods,
			Globals: globals,
			OnContextClosed: func(m *py.Module) {
				wsObj, _ := py.GetAttrString(m, kWorkspaceAttr)
				if wsObj != nil {
					wsObj.(*Workspace).Close()
				}
			},
		})

	}
}
