package feedback

// Prerequisite messages
const (
	globalCodeText = "Please keep your code within the existing predefined functions " +
		"or define your own helper functions if you need to " +
		"-- we cannot process code in the global scope."

	missingStarterCodeText = "It looks like you deleted or modified the starter code!  Our " +
		"evaluation program requires the function names given in the " +
		"starter code.  You can press the 'Reset Code' button to start " +
		"over.  Or, you can copy the starter code below:"

	badImportText = "It looks like you're importing an external library. However, the " +
		"following libraries are not supported:\n"

	supportedLibrariesText = "Here is a list of libraries we currently support:\n"
)

// Execution messages
const (
	syntaxErrorText = "Looks like your code has a syntax error. Take another look at the line below:"

	stackOverflowText = "Your code appears to be hitting an infinite recursive loop. " +
		"Check to make sure that your recursive calls terminate."

	runtimeErrorTextFormat = "Looks like your code had a runtime error when evaluating the input %s."

	undeclaredVariableTextFormat = "It looks like %s isn't a declared variable. " +
		"Did you make sure to spell it correctly? And is it correctly initialized?"

	executorFailureText = "We weren't able to run your code this time. Please try submitting again."

	successText = "Great job! Your code passes all of the tests for this question."

	languageUnfamiliarityText = "It looks like you might be getting stuck on the language " +
		"itself rather than on the problem. It may help to review the basics of %s " +
		"syntax before trying again."
)

// Type identifies a generic correctness template.
type Type string

const (
	// TypeInputToTry names an input the learner's code gets wrong.
	TypeInputToTry Type = "INPUT_TO_TRY"

	// TypeOutputEnabled shows expected and actual output side by side.
	TypeOutputEnabled Type = "OUTPUT_ENABLED"
)

// CorrectnessText holds the interchangeable opening phrases for each
// generic correctness template.
var CorrectnessText = map[Type][]string{
	TypeInputToTry: {
		"Your code produces an incorrect output for the following input. Try tracing through it by hand:",
		"Have a look at what your code does with this input:",
		"Not quite. Try running your code on the input below and compare the result to what you expect:",
		"Your code doesn't handle this input correctly yet:",
	},
	TypeOutputEnabled: {
		"Here's what your code produced for the sample input, compared with the expected output:",
		"Your code's output for the sample input doesn't match what we expected:",
		"Take a look at the difference between the expected output and yours:",
	},
}
