package grammar

const javascriptQuery = `
(comment) @comment
[(string) (template_string)] @string
(regex) @regexp
(number) @number

(function_declaration name: (identifier) @function)
(method_definition name: (property_identifier) @method)
(call_expression function: (identifier) @function)
(class_declaration name: (identifier) @class)
(property_identifier) @property
(identifier) @variable

[
  "const" "let" "var" "function" "return" "if" "else" "for" "while"
  "new" "class" "import" "export" "from" "async" "await"
] @keyword

["+" "-" "*" "/" "=" "==" "===" "!=" "!==" "=>" "&&" "||"] @operator
`

const goQuery = `
(comment) @comment
[(interpreted_string_literal) (raw_string_literal)] @string
[(int_literal) (float_literal)] @number

(function_declaration name: (identifier) @function)
(method_declaration name: (field_identifier) @method)
(call_expression function: (identifier) @function)
(type_identifier) @type
(package_identifier) @namespace
(field_identifier) @property
(identifier) @variable

[
  "func" "package" "import" "return" "if" "else" "for" "range" "var"
  "const" "type" "struct" "interface" "go" "defer" "switch" "case"
] @keyword

["+" "-" "*" "/" "=" ":=" "==" "!=" "&&" "||"] @operator
`

const pythonQuery = `
(comment) @comment
(string) @string
[(integer) (float)] @number

(function_definition name: (identifier) @function)
(class_definition name: (identifier) @class)
(call function: (identifier) @function)
(identifier) @variable

[
  "def" "class" "return" "if" "elif" "else" "for" "while" "import"
  "from" "as" "in" "with" "try" "except" "finally" "raise" "lambda"
] @keyword

["+" "-" "*" "/" "=" "==" "!="] @operator
`
