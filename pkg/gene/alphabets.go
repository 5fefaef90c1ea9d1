package gene

// LLVM new-pass-manager function and module passes accepted by opt -passes.
var llvmPasses = []string{
	"adce",
	"aggressive-instcombine",
	"alignment-from-assumptions",
	"argpromotion",
	"bdce",
	"called-value-propagation",
	"constmerge",
	"correlated-propagation",
	"dce",
	"deadargelim",
	"div-rem-pairs",
	"dse",
	"early-cse",
	"elim-avail-extern",
	"float2int",
	"function-attrs",
	"globaldce",
	"globalopt",
	"gvn",
	"indvars",
	"inline",
	"instcombine",
	"instsimplify",
	"ipsccp",
	"jump-threading",
	"lcssa",
	"libcalls-shrinkwrap",
	"licm",
	"loop-deletion",
	"loop-distribute",
	"loop-idiom",
	"loop-load-elim",
	"loop-rotate",
	"loop-simplify",
	"loop-sink",
	"loop-unroll",
	"loop-vectorize",
	"lower-expect",
	"mem2reg",
	"memcpyopt",
	"mldst-motion",
	"reassociate",
	"sccp",
	"simple-loop-unswitch",
	"simplifycfg",
	"slp-vectorizer",
	"speculative-execution",
	"sroa",
	"strip-dead-prototypes",
	"tailcallelim",
}

// Approximations of the -O1/-O2/-O3 function pipelines.
var llvmDefaults = [][]string{
	{"mem2reg", "simplifycfg", "early-cse", "instcombine", "simplifycfg"},
	{"sroa", "early-cse", "simplifycfg", "instcombine", "jump-threading", "correlated-propagation",
		"reassociate", "loop-rotate", "licm", "indvars", "loop-deletion", "gvn", "sccp", "dse", "adce"},
	{"sroa", "early-cse", "inline", "simplifycfg", "aggressive-instcombine", "instcombine",
		"jump-threading", "correlated-propagation", "tailcallelim", "reassociate", "loop-rotate",
		"licm", "simple-loop-unswitch", "indvars", "loop-idiom", "loop-deletion", "loop-unroll",
		"mldst-motion", "gvn", "memcpyopt", "sccp", "bdce", "dse", "adce", "loop-vectorize",
		"slp-vectorizer", "instcombine", "simplifycfg"},
}

// GCC optimization flags toggled on top of -O0.
var gccFlags = []string{
	"-fcaller-saves",
	"-fcode-hoisting",
	"-fcrossjumping",
	"-fcse-follow-jumps",
	"-fdevirtualize",
	"-fexpensive-optimizations",
	"-fgcse",
	"-fgcse-after-reload",
	"-fhoist-adjacent-loads",
	"-fif-conversion",
	"-fif-conversion2",
	"-finline-functions",
	"-finline-small-functions",
	"-fipa-cp",
	"-fipa-cp-clone",
	"-fipa-sra",
	"-fisolate-erroneous-paths-dereference",
	"-floop-interchange",
	"-foptimize-sibling-calls",
	"-fpeel-loops",
	"-fpeephole2",
	"-fpredictive-commoning",
	"-freorder-blocks",
	"-freorder-functions",
	"-frerun-cse-after-loop",
	"-fschedule-insns2",
	"-fsplit-paths",
	"-fstrict-aliasing",
	"-fthread-jumps",
	"-ftree-loop-distribution",
	"-ftree-loop-vectorize",
	"-ftree-pre",
	"-ftree-slp-vectorize",
	"-ftree-switch-conversion",
	"-ftree-tail-merge",
	"-ftree-vrp",
	"-funroll-loops",
	"-funswitch-loops",
}

var gccDefaults = [][]string{
	{"-fif-conversion", "-fif-conversion2", "-fthread-jumps", "-ftree-vrp"},
	{"-fcaller-saves", "-fcode-hoisting", "-fcrossjumping", "-fcse-follow-jumps", "-fexpensive-optimizations",
		"-fgcse", "-finline-small-functions", "-fipa-cp", "-foptimize-sibling-calls", "-fpeephole2",
		"-freorder-blocks", "-freorder-functions", "-frerun-cse-after-loop", "-fschedule-insns2",
		"-fstrict-aliasing", "-ftree-pre", "-ftree-switch-conversion", "-ftree-tail-merge"},
	{"-fgcse-after-reload", "-fipa-cp-clone", "-floop-interchange", "-fpeel-loops", "-fpredictive-commoning",
		"-fsplit-paths", "-ftree-loop-distribution", "-ftree-loop-vectorize", "-ftree-slp-vectorize",
		"-funswitch-loops", "-finline-functions"},
}
